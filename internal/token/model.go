package token

import "time"

// RefreshToken is the durable record of an issued refresh token. Once revoked
// it is never mutated again; expired rows are garbage-collected by the sweeper.
type RefreshToken struct {
	ID         string
	AccountID  string
	Token      string
	ExpiresAt  time.Time
	DeviceInfo string
	IPAddress  string
	Revoked    bool
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token's lifetime has passed.
func (t RefreshToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}
