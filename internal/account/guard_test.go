package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestAccount(t *testing.T, repo Repository) Account {
	t.Helper()
	acc := Account{
		ID:        uuid.NewString(),
		Email:     "owner@example.com",
		Role:      RoleOwner,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func TestGuardLocksAtThreshold(t *testing.T) {
	repo := NewMemoryRepository()
	guard := NewGuard(repo, 5)
	acc := newTestAccount(t, repo)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		locked, err := guard.RecordFailure(ctx, acc.ID)
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after %d failures, threshold is 5", i)
		}
	}

	locked, err := guard.RecordFailure(ctx, acc.ID)
	if err != nil {
		t.Fatalf("fifth failure: %v", err)
	}
	if !locked {
		t.Fatal("expected lock after fifth failure")
	}

	stored, err := repo.FindByID(ctx, acc.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Locked || stored.FailedAttempts != 5 || stored.LastFailedAt == nil {
		t.Fatalf("unexpected state after lock: %+v", stored)
	}
}

func TestGuardSuccessResetsState(t *testing.T) {
	repo := NewMemoryRepository()
	guard := NewGuard(repo, 5)
	acc := newTestAccount(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := guard.RecordFailure(ctx, acc.ID); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}
	if err := guard.RecordSuccess(ctx, acc.ID); err != nil {
		t.Fatalf("success: %v", err)
	}

	stored, err := repo.FindByID(ctx, acc.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Locked || stored.FailedAttempts != 0 || stored.LastFailedAt != nil {
		t.Fatalf("failure state not reset: %+v", stored)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("expected last-login stamp")
	}
}

func TestGuardClearLockIsUnconditional(t *testing.T) {
	repo := NewMemoryRepository()
	guard := NewGuard(repo, 2)
	acc := newTestAccount(t, repo)
	ctx := context.Background()

	guard.RecordFailure(ctx, acc.ID)
	locked, _ := guard.RecordFailure(ctx, acc.ID)
	if !locked {
		t.Fatal("expected lock at threshold 2")
	}

	if err := guard.ClearLock(ctx, acc.ID); err != nil {
		t.Fatalf("clear lock: %v", err)
	}

	stored, _ := repo.FindByID(ctx, acc.ID)
	if stored.Locked || stored.FailedAttempts != 0 {
		t.Fatalf("lock not cleared: %+v", stored)
	}
	if stored.LastLoginAt != nil {
		t.Fatal("clear lock must not stamp a login")
	}
}

func TestRepositoryUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := Account{ID: uuid.NewString(), WalletAddress: "0xAbCd00000000000000000000000000000000ef12", Role: RoleOwner, Active: true}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same wallet in a different case must collide.
	dup := Account{ID: uuid.NewString(), WalletAddress: "0xABCD00000000000000000000000000000000EF12", Role: RoleOwner, Active: true}
	if err := repo.Create(ctx, dup); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := repo.FindByWallet(ctx, "0xABCD00000000000000000000000000000000EF12")
	if err != nil {
		t.Fatalf("find by wallet: %v", err)
	}
	if found.ID != first.ID {
		t.Fatalf("expected %s, got %s", first.ID, found.ID)
	}
}
