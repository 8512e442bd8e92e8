// Package redis holds the cache connection shared by guest sessions,
// idempotency records and worker locks.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// Nil is re-exported so callers do not need to import go-redis for missing keys.
var Nil = redis.Nil

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	Watch(context.Context, func(*redis.Tx) error, ...string) error
}

// Client is the booking service's view of Redis.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// IdempotencyStore is what the HTTP replay middleware needs.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New dials Redis and fails fast when the server does not answer PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_addr": opts.Addr,
			"redis_db":   opts.DB,
		}), "redis connection established")
	}
	return NewFromRaw(raw), nil
}

// NewFromRaw wraps an already configured go-redis client.
func NewFromRaw(raw *redis.Client) *Client {
	return &Client{store: raw, raw: raw}
}

// optionsFromConfig prefers WEDDONE_REDIS_URL. Pool and timeout settings from
// the environment only fill what the URL left unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	opts.DB = fill(opts.DB, cfg.DB)
	opts.PoolSize = fill(opts.PoolSize, cfg.PoolSize)
	opts.MinIdleConns = fill(opts.MinIdleConns, cfg.MinIdleConns)
	opts.DialTimeout = fill(opts.DialTimeout, cfg.DialTimeout)
	opts.ReadTimeout = fill(opts.ReadTimeout, cfg.ReadTimeout)
	opts.WriteTimeout = fill(opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fill[T comparable](current, fallback T) T {
	var zero T
	if current == zero {
		return fallback
	}
	return current
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
