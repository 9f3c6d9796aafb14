package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/digital-seal/digital_seal/internal/account"
)

var (
	// ErrExpired is returned when a refresh token's lifetime has passed.
	ErrExpired = errors.New("refresh token expired")
	// ErrRevoked is returned when a refresh token was already revoked or rotated.
	ErrRevoked = errors.New("refresh token revoked")
	// ErrInvalidAccessToken is returned when an access token fails signature or expiry checks.
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// Claims is the payload embedded in signed access tokens. The access token is
// stateless: nothing about it is stored server-side.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Pair bundles a short-lived access token with a long-lived refresh token.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service issues signed access tokens and opaque refresh tokens, and owns
// refresh token rotation and revocation.
type Service struct {
	repo       Repository
	accounts   account.Repository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService builds a token Service signing access tokens with secret.
func NewService(repo Repository, accounts account.Repository, secret []byte, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		accounts:   accounts,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken mints a signed HS256 access token carrying the account's
// id and role.
func (s *Service) IssueAccessToken(acc account.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Role: acc.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseAccessToken verifies the token signature and expiry and returns its claims.
func (s *Service) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// IssueRefreshToken generates an opaque token and persists its record.
func (s *Service) IssueRefreshToken(ctx context.Context, accountID, deviceInfo, ipAddress string) (RefreshToken, error) {
	now := time.Now().UTC()
	rt := RefreshToken{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Token:      uuid.NewString(),
		ExpiresAt:  now.Add(s.refreshTTL),
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		CreatedAt:  now,
	}
	if err := s.repo.Save(ctx, rt); err != nil {
		return RefreshToken{}, fmt.Errorf("save refresh token: %w", err)
	}
	return rt, nil
}

// IssuePair mints an access/refresh pair for the account.
func (s *Service) IssuePair(ctx context.Context, acc account.Account, deviceInfo, ipAddress string) (Pair, error) {
	access, err := s.IssueAccessToken(acc)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.IssueRefreshToken(ctx, acc.ID, deviceInfo, ipAddress)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Rotate exchanges a refresh token for a fresh pair and permanently revokes
// the old token. A rotated token can never be used again; reuse is rejected
// with ErrRevoked, which doubles as a theft signal for callers that want to
// invalidate the whole session tree.
func (s *Service) Rotate(ctx context.Context, rawToken, deviceInfo, ipAddress string) (Pair, error) {
	rt, err := s.repo.FindByToken(ctx, rawToken)
	if err != nil {
		return Pair{}, err
	}
	if rt.Expired() {
		// The stale row is useless; drop it instead of waiting for the sweeper.
		if delErr := s.repo.Delete(ctx, rawToken); delErr != nil {
			return Pair{}, fmt.Errorf("delete expired refresh token: %w", delErr)
		}
		return Pair{}, ErrExpired
	}
	if rt.Revoked {
		return Pair{}, ErrRevoked
	}

	// Revoke before minting. The store flips the row for exactly one caller,
	// so a concurrent rotation of the same token loses the race here instead
	// of both receiving valid pairs.
	revoked, err := s.repo.Revoke(ctx, rawToken, time.Now())
	if err != nil {
		return Pair{}, fmt.Errorf("revoke rotated token: %w", err)
	}
	if !revoked {
		return Pair{}, ErrRevoked
	}

	acc, err := s.accounts.FindByID(ctx, rt.AccountID)
	if err != nil {
		return Pair{}, fmt.Errorf("load account %s: %w", rt.AccountID, err)
	}

	return s.IssuePair(ctx, acc, deviceInfo, ipAddress)
}

// FindByToken returns the stored record for a refresh token string.
func (s *Service) FindByToken(ctx context.Context, rawToken string) (RefreshToken, error) {
	return s.repo.FindByToken(ctx, rawToken)
}

// Revoke marks the token revoked. Unknown and already-revoked tokens are
// silently accepted so logout never fails user-visibly.
func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	_, err := s.repo.Revoke(ctx, rawToken, time.Now())
	return err
}

// RevokeAllForAccount revokes every live refresh token of the account
// (logout from all devices).
func (s *Service) RevokeAllForAccount(ctx context.Context, accountID string) error {
	return s.repo.RevokeAllForAccount(ctx, accountID, time.Now())
}

// DeleteExpired garbage-collects refresh tokens whose expiry has passed.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now())
}
