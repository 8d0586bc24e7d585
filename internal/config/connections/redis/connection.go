package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type ConnectionInfo struct {
	URL         string
	PoolSize    int
	DialTimeout time.Duration
}

type Redis struct {
	Client *redis.Client
}

// NewConnection returns nil when no URL is configured.
func NewConnection(ctx context.Context, info ConnectionInfo) (*Redis, error) {
	if info.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(info.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if info.PoolSize > 0 {
		opts.PoolSize = info.PoolSize
	}
	if info.DialTimeout > 0 {
		opts.DialTimeout = info.DialTimeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{Client: client}, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}
