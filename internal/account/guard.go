package account

import (
	"context"
	"time"
)

// Guard owns the failed-login state machine: every failed password check goes
// through RecordFailure, every successful one through RecordSuccess. Once the
// counter reaches the threshold the account locks and only ClearLock (driven
// by the password-reset flow) reopens it; there is no time-based unlock.
// Wallet logins bypass the guard entirely.
type Guard struct {
	repo      Repository
	threshold int
}

// NewGuard builds a Guard locking accounts after threshold failed attempts.
func NewGuard(repo Repository, threshold int) *Guard {
	if threshold <= 0 {
		threshold = 5
	}
	return &Guard{repo: repo, threshold: threshold}
}

// RecordFailure registers a failed password check and reports whether the
// account is now locked.
func (g *Guard) RecordFailure(ctx context.Context, id string) (bool, error) {
	return g.repo.RecordFailedLogin(ctx, id, g.threshold)
}

// RecordSuccess clears failure tracking and stamps the login time.
func (g *Guard) RecordSuccess(ctx context.Context, id string) error {
	return g.repo.ResetLoginState(ctx, id, time.Now())
}

// ClearLock unconditionally unlocks the account, independent of any login.
func (g *Guard) ClearLock(ctx context.Context, id string) error {
	return g.repo.ClearLockout(ctx, id)
}
