package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/digital-seal/digital_seal/internal/logging"
)

type countingStore struct {
	calls   atomic.Int64
	deleted int64
	err     error
}

func (s *countingStore) DeleteExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return s.deleted, s.err
}

func TestSweepDeletesFromBothStores(t *testing.T) {
	tokens := &countingStore{deleted: 3}
	codes := &countingStore{deleted: 1}
	s := NewSweeper(time.Hour, tokens, codes, logging.Discard())

	s.Sweep(context.Background())

	if got := tokens.calls.Load(); got != 1 {
		t.Fatalf("token store called %d times, want 1", got)
	}
	if got := codes.calls.Load(); got != 1 {
		t.Fatalf("code store called %d times, want 1", got)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	tokens := &countingStore{err: errors.New("connection reset")}
	codes := &countingStore{deleted: 2}
	s := NewSweeper(time.Hour, tokens, codes, logging.Discard())

	s.Sweep(context.Background())

	if got := codes.calls.Load(); got != 1 {
		t.Fatalf("code store called %d times, want 1", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	tokens := &countingStore{}
	codes := &countingStore{}
	s := NewSweeper(10*time.Millisecond, tokens, codes, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
	if tokens.calls.Load() == 0 {
		t.Fatal("expected at least one sweep before cancel")
	}
}
