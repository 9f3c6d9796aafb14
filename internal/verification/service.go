package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrExpired is returned when the code's TTL has passed. The stale code is
	// left in place; the next Generate call cleans it up.
	ErrExpired = errors.New("verification code expired")
	// ErrTooManyAttempts is returned once the attempt budget is exhausted,
	// even for a correct late guess.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrInvalidCode is returned on a mismatched guess.
	ErrInvalidCode = errors.New("invalid verification code")
)

var codeSpace = big.NewInt(1000000)

// Service issues and checks one-time 6-digit codes.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	ttl         time.Duration
	maxAttempts int
}

// NewService builds a verification Service with the given code TTL and
// attempt budget.
func NewService(repo Repository, logger *slog.Logger, ttl time.Duration, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{repo: repo, logger: logger, ttl: ttl, maxAttempts: maxAttempts}
}

// Generate invalidates any outstanding codes for the account and purpose and
// issues a fresh one. The plaintext code is returned for delivery; it is
// stored as-is since the short TTL and single use bound its exposure.
func (s *Service) Generate(ctx context.Context, accountID string, purpose Purpose) (string, error) {
	if err := s.repo.InvalidateAllUnused(ctx, accountID, purpose); err != nil {
		return "", fmt.Errorf("invalidate previous codes: %w", err)
	}

	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	now := time.Now().UTC()
	record := Code{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return "", fmt.Errorf("save code: %w", err)
	}

	s.logger.Info("verification code generated",
		slog.String("account_id", accountID), slog.String("purpose", string(purpose)))
	return code, nil
}

// Verify checks a submitted code against the latest unused one. The attempt
// counter is incremented before the comparison, so every guess consumes a
// slot and a correct guess after exhaustion is still rejected.
func (s *Service) Verify(ctx context.Context, accountID, submitted string, purpose Purpose) error {
	c, err := s.repo.FindLatestUnused(ctx, accountID, purpose)
	if err != nil {
		return err
	}
	if c.Expired() {
		return ErrExpired
	}
	if c.Attempts >= s.maxAttempts {
		return ErrTooManyAttempts
	}

	attempts, err := s.repo.IncrementAttempts(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(submitted)) != 1 {
		remaining := s.maxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Errorf("%w: %d attempts remaining", ErrInvalidCode, remaining)
	}

	if err := s.repo.MarkUsed(ctx, c.ID); err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	s.logger.Info("verification code consumed",
		slog.String("account_id", accountID), slog.String("purpose", string(purpose)))
	return nil
}

// DeleteExpired garbage-collects codes past their expiry. Housekeeping only;
// expired codes are already unusable.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now())
}
