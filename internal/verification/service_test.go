package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/digital-seal/digital_seal/internal/logging"
)

func newTestService(ttl time.Duration, maxAttempts int) *Service {
	return NewService(NewMemoryRepository(), logging.Discard(), ttl, maxAttempts)
}

func TestGenerateAndVerify(t *testing.T) {
	svc := newTestService(10*time.Minute, 5)
	ctx := context.Background()
	accountID := uuid.NewString()

	code, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	if err := svc.Verify(ctx, accountID, code, PurposeEmailVerification); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The code is consumed; a second use must fail.
	if err := svc.Verify(ctx, accountID, code, PurposeEmailVerification); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after consumption, got %v", err)
	}
}

func TestGenerateInvalidatesPreviousCode(t *testing.T) {
	svc := newTestService(10*time.Minute, 5)
	ctx := context.Background()
	accountID := uuid.NewString()

	first, err := svc.Generate(ctx, accountID, PurposePasswordReset)
	if err != nil {
		t.Fatalf("generate first: %v", err)
	}
	second, err := svc.Generate(ctx, accountID, PurposePasswordReset)
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}

	if first == second {
		// Collisions are possible in a 6-digit space, but the first code is
		// invalid either way; skip the distinct-value assertion.
		t.Logf("codes collided: %s", first)
	}

	err = svc.Verify(ctx, accountID, first, PurposePasswordReset)
	if err == nil && first != second {
		t.Fatal("expected invalidated code to be rejected")
	}

	// Purposes are independent: the reset code must not satisfy email verification.
	if err := svc.Verify(ctx, accountID, second, PurposeEmailVerification); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other purpose, got %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	svc := newTestService(-time.Minute, 5)
	ctx := context.Background()
	accountID := uuid.NewString()

	code, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := svc.Verify(ctx, accountID, code, PurposeEmailVerification); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// Expired codes are not deleted; a later Generate cleans them up.
	if _, err := svc.repo.FindLatestUnused(ctx, accountID, PurposeEmailVerification); err != nil {
		t.Fatalf("expected expired code still present, got %v", err)
	}
}

func TestVerifyExhaustsAttempts(t *testing.T) {
	svc := newTestService(10*time.Minute, 5)
	ctx := context.Background()
	accountID := uuid.NewString()

	code, err := svc.Generate(ctx, accountID, PurposeEmailVerification)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 5; i++ {
		if err := svc.Verify(ctx, accountID, wrong, PurposeEmailVerification); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
		}
	}

	// Sixth attempt is rejected before comparison, even with the right code.
	if err := svc.Verify(ctx, accountID, code, PurposeEmailVerification); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestVerifyWithoutCode(t *testing.T) {
	svc := newTestService(10*time.Minute, 5)

	err := svc.Verify(context.Background(), uuid.NewString(), "123456", PurposeEmailVerification)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	svc := newTestService(-time.Minute, 5)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, uuid.NewString(), PurposeEmailVerification); err != nil {
		t.Fatalf("generate: %v", err)
	}

	removed, err := svc.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
