package verification

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.Mutex
	codes map[string]Code
}

// NewMemoryRepository builds an in-memory code store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{codes: make(map[string]Code)}
}

func (r *memoryRepository) Save(_ context.Context, c Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[c.ID] = c
	return nil
}

func (r *memoryRepository) FindLatestUnused(_ context.Context, accountID string, purpose Purpose) (Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest Code
	found := false
	for _, c := range r.codes {
		if c.AccountID != accountID || c.Purpose != purpose || c.Used {
			continue
		}
		if !found || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
			found = true
		}
	}
	if !found {
		return Code{}, ErrNotFound
	}
	return latest, nil
}

func (r *memoryRepository) InvalidateAllUnused(_ context.Context, accountID string, purpose Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.codes {
		if c.AccountID == accountID && c.Purpose == purpose && !c.Used {
			c.Used = true
			r.codes[id] = c
		}
	}
	return nil
}

func (r *memoryRepository) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return 0, ErrNotFound
	}
	c.Attempts++
	r.codes[id] = c
	return c.Attempts, nil
}

func (r *memoryRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return ErrNotFound
	}
	c.Used = true
	r.codes[id] = c
	return nil
}

func (r *memoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, c := range r.codes {
		if c.ExpiresAt.Before(before) {
			delete(r.codes, id)
			removed++
		}
	}
	return removed, nil
}
