package guestcount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/redis"
)

const sessionDocKind = "guest_count"

type sessionRedis interface {
	Get(ctx context.Context, key string) (string, error)
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current string, exists bool) (string, error)) error
	Del(ctx context.Context, keys ...string) error
	GuestKey(sessionID, kind string) string
}

// SessionStore keeps a guest's count as a JSON document in Redis. Every write
// refreshes the session TTL.
type SessionStore struct {
	redis sessionRedis
	ttl   time.Duration
}

func NewSessionStore(client sessionRedis, ttl time.Duration) (*SessionStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &SessionStore{redis: client, ttl: ttl}, nil
}

func (s *SessionStore) Load(ctx context.Context, owner Owner) (State, error) {
	if owner.SessionID == "" {
		return State{}, ErrOwnerRequired
	}
	raw, err := s.redis.Get(ctx, s.key(owner))
	if errors.Is(err, redis.Nil) {
		return State{}.Clone(), nil
	}
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest session count")
	}
	return decodeSessionState(raw)
}

func (s *SessionStore) Apply(ctx context.Context, owner Owner, mutate Mutation) (State, []Event, error) {
	if owner.SessionID == "" {
		return State{}, nil, ErrOwnerRequired
	}
	var (
		result State
		events []Event
	)
	err := s.redis.Update(ctx, s.key(owner), s.ttl, func(current string, exists bool) (string, error) {
		state := State{}.Clone()
		if exists {
			decoded, err := decodeSessionState(current)
			if err != nil {
				return "", err
			}
			state = decoded
		}
		outcome, err := mutate(state)
		if err != nil {
			return "", err
		}
		result = outcome.State.Clone()
		events = outcome.Events
		encoded, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("encode guest session count: %w", err)
		}
		return string(encoded), nil
	})
	if err != nil {
		var locked *LockedError
		if errors.As(err, &locked) || pkgerrors.As(err) != nil {
			return State{}, nil, err
		}
		return State{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist guest session count")
	}
	return result, events, nil
}

// Forget removes the transient copy once it has been merged into an account.
func (s *SessionStore) Forget(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrOwnerRequired
	}
	return s.redis.Del(ctx, s.redis.GuestKey(sessionID, sessionDocKind))
}

func (s *SessionStore) key(owner Owner) string {
	return s.redis.GuestKey(owner.SessionID, sessionDocKind)
}

func decodeSessionState(raw string) (State, error) {
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode guest session count")
	}
	state.UpdatedAt = state.UpdatedAt.UTC()
	return state.normalized(), nil
}
