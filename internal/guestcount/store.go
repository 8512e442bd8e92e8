package guestcount

import "context"

// Outcome is what a Mutation decides: the next state, whether it differs from
// the stored one, and the notifications the change produces.
type Outcome struct {
	State   State
	Changed bool
	Events  []Event
}

// Mutation computes the next state from the current one. It runs inside the
// store's atomic section and may run more than once on contention.
type Mutation func(current State) (Outcome, error)

// Store persists guest counts for one kind of owner.
type Store interface {
	Load(ctx context.Context, owner Owner) (State, error)
	Apply(ctx context.Context, owner Owner, mutate Mutation) (State, []Event, error)
}

// DualStore routes accounts to durable storage and guests to the transient
// session store so callers never branch on sign-in state.
type DualStore struct {
	Accounts Store
	Sessions Store
}

func (d DualStore) route(owner Owner) (Store, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if owner.IsAccount() {
		return d.Accounts, nil
	}
	return d.Sessions, nil
}

func (d DualStore) Load(ctx context.Context, owner Owner) (State, error) {
	store, err := d.route(owner)
	if err != nil {
		return State{}, err
	}
	return store.Load(ctx, owner)
}

func (d DualStore) Apply(ctx context.Context, owner Owner, mutate Mutation) (State, []Event, error) {
	store, err := d.route(owner)
	if err != nil {
		return State{}, nil, err
	}
	return store.Apply(ctx, owner, mutate)
}
