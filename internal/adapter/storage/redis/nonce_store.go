package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis. Issued login
// challenges live under a TTL and are deleted on first use.
type NonceStore struct {
	client goredis.Cmdable
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client goredis.Cmdable) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: "nonce:",
	}
}

// Put records an issued challenge. Issuing the same key twice is an error.
func (s *NonceStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.client.SetArgs(ctx, s.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return fmt.Errorf("nonce %q already issued", key)
		}
		return fmt.Errorf("redis nonce put: %w", err)
	}
	return nil
}

// Consume atomically removes an issued challenge. It reports false when the
// challenge was never issued, has expired or was already used.
func (s *NonceStore) Consume(ctx context.Context, key string) (bool, error) {
	_, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis nonce consume: %w", err)
	}
	return true, nil
}
