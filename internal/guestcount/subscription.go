package guestcount

import (
	"context"
	"sync"
)

// DefaultSubscriptionBuffer is used when Subscribe is given a non-positive size.
const DefaultSubscriptionBuffer = 16

// Subscription receives registry events until Unsubscribe is called. A
// subscriber that falls behind its buffer misses events rather than stalling
// writers; it can always Read the latest state.
type Subscription struct {
	C <-chan Event

	ch       chan Event
	registry *Registry
	once     sync.Once
}

// Subscribe registers a listener for every persisted change.
func (r *Registry) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch, registry: r}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

// Unsubscribe detaches the listener and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		r := s.registry
		r.mu.Lock()
		delete(r.subs, s)
		close(s.ch)
		r.mu.Unlock()
	})
}

// Watch counts every registry event in the booking metrics until ctx is done.
// It blocks, so callers run it on its own goroutine.
func (r *Registry) Watch(ctx context.Context, buffer int) {
	sub := r.Subscribe(buffer)
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.C:
			r.metrics.IncGuestCountEvent(string(event.Type), event.Owner.Kind())
			if r.logg != nil {
				logCtx := r.logg.WithFields(ctx, map[string]any{
					"owner":  event.Owner.String(),
					"event":  string(event.Type),
					"value":  event.State.Value,
					"locked": event.State.Locked,
				})
				r.logg.Debug(logCtx, "guest count event")
			}
		}
	}
}

// Subscribers reports the number of attached listeners.
func (r *Registry) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Registry) publish(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sub := range r.subs {
		select {
		case sub.ch <- event:
		default:
		}
	}
}
