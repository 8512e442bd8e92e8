package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	values      map[string]string
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "wd:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		f.lastDeleted = key
		delete(f.values, key)
	}
	return nil
}

func TestClaim_FirstTimeWins(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	owner, claimed, err := manager.Claim(context.Background(), "guest_session", "sess-1", "acct-a")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed || owner != "acct-a" {
		t.Fatalf("expected first claim to win, got owner=%q claimed=%v", owner, claimed)
	}
	if store.lastKey != "wd:idempotency:once:guest_session:sess-1" {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestClaim_SecondCallerSeesOwner(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, 0)
	ctx := context.Background()

	if _, _, err := manager.Claim(ctx, "guest_session", "sess-1", "acct-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	owner, claimed, err := manager.Claim(ctx, "guest_session", "sess-1", "acct-b")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed || owner != "acct-a" {
		t.Fatalf("expected existing owner acct-a, got owner=%q claimed=%v", owner, claimed)
	}
}

func TestClaim_ReleaseAllowsRetry(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)
	ctx := context.Background()

	_, _, _ = manager.Claim(ctx, "guest_session", "sess-1", "acct-a")
	if err := manager.Release(ctx, "guest_session", "sess-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.lastDeleted != "wd:idempotency:once:guest_session:sess-1" {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
	_, claimed, err := manager.Claim(ctx, "guest_session", "sess-1", "acct-b")
	if err != nil || !claimed {
		t.Fatalf("expected claim after release, claimed=%v err=%v", claimed, err)
	}
}

func TestClaim_Validation(t *testing.T) {
	manager, _ := NewManager(newFakeStore(), time.Hour)
	ctx := context.Background()
	if _, _, err := manager.Claim(ctx, "", "id", "h"); err == nil {
		t.Fatal("expected scope error")
	}
	if _, _, err := manager.Claim(ctx, "s", " ", "h"); err == nil {
		t.Fatal("expected id error")
	}
	if _, _, err := manager.Claim(ctx, "s", "id", ""); err == nil {
		t.Fatal("expected holder error")
	}
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewManager(newFakeStore(), -time.Second); err == nil {
		t.Fatal("expected negative ttl error")
	}
}

func TestClaim_StoreError(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("redis down")
	manager, _ := NewManager(store, time.Hour)
	if _, _, err := manager.Claim(context.Background(), "s", "id", "h"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
