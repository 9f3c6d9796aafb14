package auth

import (
	"context"
	"sync"
	"time"
)

type pendingNonce struct {
	nonce     string
	expiresAt time.Time
}

type memoryNonceStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	nonces map[string]pendingNonce
}

// NewMemoryNonceStore returns an in-process NonceStore for tests and dev mode.
func NewMemoryNonceStore(ttl time.Duration) NonceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &memoryNonceStore{ttl: ttl, nonces: make(map[string]pendingNonce)}
}

func (s *memoryNonceStore) Put(_ context.Context, address, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[address] = pendingNonce{nonce: nonce, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *memoryNonceStore) Get(_ context.Context, address string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.nonces[address]
	if !ok || time.Now().After(pending.expiresAt) {
		delete(s.nonces, address)
		return "", ErrNonceNotFound
	}
	return pending.nonce, nil
}

func (s *memoryNonceStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nonces, address)
	return nil
}
