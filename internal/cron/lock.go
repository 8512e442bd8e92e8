package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 25 * time.Hour

// Lock makes a cycle exclusive across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock holds a SETNX key whose value names the holder, so a worker never
// deletes a lock that expired and was taken over by another replica.
type RedisLock struct {
	store  lockStore
	key    string
	ttl    time.Duration
	holder string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	holder := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, holder, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.holder = holder
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.holder == "" {
		return nil
	}
	holder := l.holder
	l.holder = ""

	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("read lock holder: %w", err)
	case current != holder:
		return nil
	}
	return l.store.Del(ctx, l.key)
}
