package token

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

// NewMemoryRepository builds an in-memory refresh token store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{tokens: make(map[string]RefreshToken)}
}

func (r *memoryRepository) Save(_ context.Context, rt RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[rt.Token] = rt
	return nil
}

func (r *memoryRepository) FindByToken(_ context.Context, rawToken string) (RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[rawToken]
	if !ok {
		return RefreshToken{}, ErrNotFound
	}
	return rt, nil
}

func (r *memoryRepository) Revoke(_ context.Context, rawToken string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[rawToken]
	if !ok || rt.Revoked {
		return false, nil
	}
	at = at.UTC()
	rt.Revoked = true
	rt.RevokedAt = &at
	r.tokens[rawToken] = rt
	return true, nil
}

func (r *memoryRepository) RevokeAllForAccount(_ context.Context, accountID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	at = at.UTC()
	for key, rt := range r.tokens {
		if rt.AccountID == accountID && !rt.Revoked {
			rt.Revoked = true
			rt.RevokedAt = &at
			r.tokens[key] = rt
		}
	}
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, rawToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, rawToken)
	return nil
}

func (r *memoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, rt := range r.tokens {
		if rt.ExpiresAt.Before(before) {
			delete(r.tokens, key)
			removed++
		}
	}
	return removed, nil
}
