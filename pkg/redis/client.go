// Package redis dials the Redis instance backing the distributed rate
// limiter.
package redis

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// Config defines connection parameters for the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps the go-redis client so callers depend on this package rather
// than the driver directly.
type Client struct {
	*redis.Client
}

// New creates a Redis client configured with cfg and verifies the connection
// with Ping.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb}, nil
}
