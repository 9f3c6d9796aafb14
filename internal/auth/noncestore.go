package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNonceNotFound is returned when no challenge is pending for an address.
var ErrNonceNotFound = errors.New("no pending nonce for address")

// NonceStore holds sign-in challenges handed to wallets that have no account
// yet. Registration must present a signature over the exact nonce it was
// issued, so the nonce is kept server-side until it is consumed or expires.
type NonceStore interface {
	Put(ctx context.Context, address, nonce string) error
	Get(ctx context.Context, address string) (string, error)
	Delete(ctx context.Context, address string) error
}

// RedisNonceStore keeps pending nonces in Redis with a TTL, so challenges
// survive across stateless instances and expire on their own.
type RedisNonceStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisNonceStore builds a nonce store on the shared Redis client.
func NewRedisNonceStore(client redis.UniversalClient, ttl time.Duration) *RedisNonceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisNonceStore{client: client, ttl: ttl}
}

func nonceKey(address string) string {
	return fmt.Sprintf("auth:nonce:%s", address)
}

// Put stores the nonce for the address, replacing any prior challenge.
func (s *RedisNonceStore) Put(ctx context.Context, address, nonce string) error {
	return s.client.Set(ctx, nonceKey(address), nonce, s.ttl).Err()
}

// Get returns the pending nonce for the address.
func (s *RedisNonceStore) Get(ctx context.Context, address string) (string, error) {
	nonce, err := s.client.Get(ctx, nonceKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNonceNotFound
	}
	if err != nil {
		return "", err
	}
	return nonce, nil
}

// Delete consumes the pending nonce.
func (s *RedisNonceStore) Delete(ctx context.Context, address string) error {
	return s.client.Del(ctx, nonceKey(address)).Err()
}
