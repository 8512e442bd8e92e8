package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace      = "wd"
	idempotencyPrefix = "idempotency"
	guestPrefix       = "guest"
	claimPrefix       = "claim"

	maxUpdateRetries = 5
)

// ErrConflict is returned when an optimistic update lost the race too many times.
var ErrConflict = errors.New("redis: concurrent update conflict")

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns Nil when key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX writes value only when key is absent and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// Update is a WATCH/MULTI read-modify-write on key. mutate sees the current
// value (exists is false when the key is absent) and returns the replacement,
// which is written with ttl. Errors from mutate abort without writing.
func (c *Client) Update(ctx context.Context, key string, ttl time.Duration, mutate func(current string, exists bool) (string, error)) error {
	if c.store == nil {
		return errNotInitialized
	}
	attempt := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		exists := err == nil
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, err := mutate(current, exists)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}
	for range maxUpdateRetries {
		err := c.store.Watch(ctx, attempt, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConflict
}

// IdempotencyKey names the record for one replayable request or event.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

// GuestKey names one kind of transient document held for a guest session.
func (c *Client) GuestKey(sessionID, kind string) string {
	return joinKey(guestPrefix, sessionID, kind)
}

// ClaimKey names the marker written when a guest session merges into an account.
func (c *Client) ClaimKey(sessionID string) string {
	return joinKey(claimPrefix, sessionID)
}

// joinKey prefixes parts with the service namespace, skipping blanks.
func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
