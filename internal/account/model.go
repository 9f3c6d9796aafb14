package account

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const (
	RoleOwner = "OWNER"
	RoleAdmin = "ADMIN"
)

// Account represents a registered user. At least one of Email or WalletAddress
// is always set; an account may carry both once the second credential is linked.
type Account struct {
	ID             string
	Email          string
	PasswordHash   []byte
	WalletAddress  string
	WalletNonce    string
	Role           string
	Active         bool
	EmailVerified  bool
	WalletVerified bool
	Locked         bool
	FailedAttempts int
	LastFailedAt   *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// NewNonce returns a fresh random nonce for the wallet sign-in challenge.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NormalizeWallet lowercases an Ethereum address so lookups and uniqueness
// checks are case-insensitive.
func NormalizeWallet(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
