package guestcount

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
)

// RegistryParams wires the registry dependencies.
type RegistryParams struct {
	Store   Store
	Logger  *logger.Logger
	Metrics *metrics.BookingMetrics
	Now     func() time.Time
}

// Registry is the single source of truth for guest counts. Once a lock reason
// is recorded the count stays latched until an admin removes every reason.
type Registry struct {
	store   Store
	logg    *logger.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Store == nil {
		return nil, errors.New("guest count store required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store:   params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
		subs:    make(map[*Subscription]struct{}),
	}, nil
}

// Read returns the owner's current value and lock state.
func (r *Registry) Read(ctx context.Context, owner Owner) (State, error) {
	if err := owner.Validate(); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "guest count owner missing")
	}
	return r.store.Load(ctx, owner)
}

// SetCount writes Clamp(n) unless the count is locked, in which case it
// returns *LockedError and leaves storage untouched.
func (r *Registry) SetCount(ctx context.Context, owner Owner, n int) (State, error) {
	value := Clamp(n)
	state, err := r.apply(ctx, owner, func(current State) (Outcome, error) {
		if current.Locked {
			return Outcome{}, &LockedError{Reasons: current.Clone().LockReasons}
		}
		next := current.Clone()
		next.Value = value
		next.UpdatedAt = r.timestamp()
		return Outcome{
			State:   next,
			Changed: true,
			Events:  []Event{{Type: EventUpdated, Owner: owner, State: next}},
		}, nil
	})
	var locked *LockedError
	if errors.As(err, &locked) {
		r.metrics.IncLockedRejection(owner.Kind())
		if r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{
				"owner":        owner.String(),
				"lock_reasons": locked.ReasonStrings(),
				"requested":    value,
			})
			r.logg.Info(logCtx, "guest count edit refused while locked")
		}
	}
	return state, err
}

// Lock latches the count with reason. Repeating a reason is a no-op and
// publishes nothing.
func (r *Registry) Lock(ctx context.Context, owner Owner, reason enums.LockReason) (State, error) {
	if !reason.IsValid() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown lock reason %q", reason))
	}
	var added bool
	state, err := r.apply(ctx, owner, func(current State) (Outcome, error) {
		added = false
		if current.HasReason(reason) {
			return Outcome{State: current}, nil
		}
		added = true
		next := current.withReason(reason)
		next.UpdatedAt = r.timestamp()
		return Outcome{
			State:   next,
			Changed: true,
			Events:  []Event{{Type: EventLocked, Owner: owner, State: next, Reason: reason}},
		}, nil
	})
	if err == nil && added {
		r.metrics.IncLockTransition("locked", reason.String())
		if r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{"owner": owner.String(), "reason": reason.String()})
			r.logg.Info(logCtx, "guest count locked")
		}
	}
	return state, err
}

// Unlock removes reason. The count only becomes editable again, and
// "unlocked" is only published, once no reasons remain.
func (r *Registry) Unlock(ctx context.Context, owner Owner, reason enums.LockReason) (State, error) {
	if !reason.IsValid() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown lock reason %q", reason))
	}
	var released bool
	state, err := r.apply(ctx, owner, func(current State) (Outcome, error) {
		released = false
		if !current.HasReason(reason) {
			return Outcome{State: current}, nil
		}
		next := current.withoutReason(reason)
		next.UpdatedAt = r.timestamp()
		outcome := Outcome{State: next, Changed: true}
		if !next.Locked {
			outcome.Events = []Event{{Type: EventUnlocked, Owner: owner, State: next, Reason: reason}}
		}
		released = true
		return outcome, nil
	})
	if err == nil && released {
		transition := "released"
		if !state.Locked {
			transition = "unlocked"
		}
		r.metrics.IncLockTransition(transition, reason.String())
	}
	return state, err
}

// ApplyApprovedChange writes a value an admin approved for a locked count.
// Lock reasons are left exactly as they are.
func (r *Registry) ApplyApprovedChange(ctx context.Context, owner Owner, n int) (State, error) {
	value := Clamp(n)
	return r.apply(ctx, owner, func(current State) (Outcome, error) {
		next := current.Clone()
		next.Value = value
		next.UpdatedAt = r.timestamp()
		return Outcome{
			State:   next,
			Changed: true,
			Events:  []Event{{Type: EventUpdated, Owner: owner, State: next}},
		}, nil
	})
}

// Adopt folds a guest session's state into an account using Merge. Newly
// inherited lock reasons publish "locked"; a value change publishes "updated".
func (r *Registry) Adopt(ctx context.Context, account Owner, guest State) (State, error) {
	if !account.IsAccount() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "adopting a guest count requires an account")
	}
	return r.apply(ctx, account, func(current State) (Outcome, error) {
		merged := Merge(guest, current)
		var events []Event
		for _, reason := range merged.LockReasons {
			if !current.HasReason(reason) {
				events = append(events, Event{Type: EventLocked, Owner: account, State: merged, Reason: reason})
			}
		}
		if merged.Value != current.Value {
			events = append(events, Event{Type: EventUpdated, Owner: account, State: merged})
		}
		return Outcome{State: merged, Changed: len(events) > 0, Events: events}, nil
	})
}

func (r *Registry) apply(ctx context.Context, owner Owner, mutate Mutation) (State, error) {
	if err := owner.Validate(); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "guest count owner missing")
	}
	state, events, err := r.store.Apply(ctx, owner, mutate)
	if err != nil {
		return State{}, err
	}
	for _, event := range events {
		r.publish(event)
	}
	return state, nil
}

func (r *Registry) timestamp() time.Time {
	return r.now().UTC()
}
