package verification

import "time"

// Purpose tags what a code proves possession for.
type Purpose string

const (
	PurposeEmailVerification Purpose = "EMAIL_VERIFICATION"
	PurposePasswordReset     Purpose = "PASSWORD_RESET"
)

// Code is a short-lived 6-digit one-time code. At most one unused code exists
// per (account, purpose): generating a new one invalidates all prior ones.
type Code struct {
	ID        string
	AccountID string
	Code      string
	Purpose   Purpose
	ExpiresAt time.Time
	Used      bool
	Attempts  int
	CreatedAt time.Time
}

// Expired reports whether the code's TTL has passed.
func (c Code) Expired() bool {
	return time.Now().After(c.ExpiresAt)
}
