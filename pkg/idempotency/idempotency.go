package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wedanddone/wedanddone-backend/pkg/redis"
)

// Manager hands out one-time claims using Redis SETNX with a TTL. Keys follow
// the `wd:idempotency:once:<scope>:<id>` pattern and hold the claimant.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a claim guard whose markers live for ttl (0 keeps them forever).
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// Claim records holder as the single owner of (scope, id). It returns the
// holder that actually owns the claim, which differs from holder when someone
// got there first.
func (m *Manager) Claim(ctx context.Context, scope, id, holder string) (owner string, claimed bool, err error) {
	key, err := m.key(scope, id)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(holder) == "" {
		return "", false, errors.New("claim holder is required")
	}
	set, err := m.store.SetNX(ctx, key, holder, m.ttl)
	if err != nil {
		return "", false, err
	}
	if set {
		return holder, true, nil
	}
	current, err := m.store.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("read existing claim: %w", err)
	}
	return current, false, nil
}

// Release drops a claim so the work can be retried, e.g. after a failed merge.
func (m *Manager) Release(ctx context.Context, scope, id string) error {
	key, err := m.key(scope, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(scope, id string) (string, error) {
	if scope == "" {
		return "", errors.New("claim scope is required")
	}
	if strings.TrimSpace(id) == "" {
		return "", errors.New("claim id is required")
	}
	return m.store.IdempotencyKey("once:"+scope, id), nil
}
