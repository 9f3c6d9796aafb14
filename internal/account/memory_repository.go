package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.Mutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if acc.Email != "" && existing.Email == acc.Email {
			return ErrDuplicate
		}
		if acc.WalletAddress != "" && existing.WalletAddress == NormalizeWallet(acc.WalletAddress) {
			return ErrDuplicate
		}
	}
	acc.WalletAddress = NormalizeWallet(acc.WalletAddress)
	r.accounts[acc.ID] = acc
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range r.accounts {
		if acc.Email != "" && acc.Email == email {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) FindByWallet(_ context.Context, address string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	address = NormalizeWallet(address)
	for _, acc := range r.accounts {
		if acc.WalletAddress != "" && acc.WalletAddress == address {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryRepository) ExistsByWallet(ctx context.Context, address string) (bool, error) {
	_, err := r.FindByWallet(ctx, address)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryRepository) RecordFailedLogin(_ context.Context, id string, threshold int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return false, ErrNotFound
	}
	now := time.Now().UTC()
	acc.FailedAttempts++
	acc.LastFailedAt = &now
	if acc.FailedAttempts >= threshold {
		acc.Locked = true
	}
	r.accounts[id] = acc
	return acc.Locked, nil
}

func (r *memoryRepository) ResetLoginState(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.FailedAttempts = 0
	acc.LastFailedAt = nil
	acc.Locked = false
	at = at.UTC()
	acc.LastLoginAt = &at
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) ClearLockout(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.FailedAttempts = 0
	acc.LastFailedAt = nil
	acc.Locked = false
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.PasswordHash = hash
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) SetEmailVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.EmailVerified = true
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) TouchWalletLogin(_ context.Context, id, nonce string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	acc.LastLoginAt = &at
	acc.WalletNonce = nonce
	r.accounts[id] = acc
	return nil
}
