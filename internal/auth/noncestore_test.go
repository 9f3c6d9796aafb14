package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisNonceStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisNonceStore(client, time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "0xabc"); !errors.Is(err, ErrNonceNotFound) {
		t.Fatalf("expected ErrNonceNotFound, got %v", err)
	}

	if err := store.Put(ctx, "0xabc", "nonce-1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "0xabc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "nonce-1" {
		t.Fatalf("got %q, want nonce-1", got)
	}

	// A new challenge replaces the old one.
	if err := store.Put(ctx, "0xabc", "nonce-2"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, _ = store.Get(ctx, "0xabc"); got != "nonce-2" {
		t.Fatalf("got %q, want nonce-2", got)
	}

	if err := store.Delete(ctx, "0xabc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "0xabc"); !errors.Is(err, ErrNonceNotFound) {
		t.Fatalf("expected ErrNonceNotFound after delete, got %v", err)
	}
}

func TestRedisNonceStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisNonceStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "0xdef", "nonce"); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "0xdef"); !errors.Is(err, ErrNonceNotFound) {
		t.Fatalf("expected ErrNonceNotFound after expiry, got %v", err)
	}
}
