// Package redis backs the engine's short-lived state: the settlement replay
// cache, login challenges and rate-limit counters. None of it is needed to
// reconstruct treasury balances.
package redis

import (
	"context"
	"fmt"

	"house-treasury/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient connects to Redis and verifies it answers before the engine
// starts serving settlements.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Int("pool_size", client.Options().PoolSize).
		Msg("Settlement cache and challenge store connected")

	return client, nil
}
