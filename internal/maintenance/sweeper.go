// Package maintenance runs periodic housekeeping jobs.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Store is a table that can drop rows whose expiry has passed.
type Store interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes expired refresh tokens and verification codes.
type Sweeper struct {
	interval time.Duration
	tokens   Store
	codes    Store
	logger   *slog.Logger
}

// NewSweeper builds a sweeper running every interval.
func NewSweeper(interval time.Duration, tokens, codes Store, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{interval: interval, tokens: tokens, codes: codes, logger: logger}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single cleanup pass. Failures are logged; the next tick
// retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	tokens, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("sweep refresh tokens", "error", err)
	}
	codes, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("sweep verification codes", "error", err)
	}
	if tokens > 0 || codes > 0 {
		s.logger.Info("swept expired records", "refresh_tokens", tokens, "verification_codes", codes)
	}
}
