package guestcount

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/redis"
)

func newSessionStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	store, err := NewSessionStore(redis.NewFromRaw(raw), ttl)
	require.NoError(t, err)
	return store, mr
}

func TestSessionStoreRoundTripWithTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newSessionStore(t, time.Hour)
	reg, err := NewRegistry(RegistryParams{Store: store, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	owner := SessionOwner("sess-123")

	_, err = reg.SetCount(ctx, owner, 75)
	require.NoError(t, err)
	_, err = reg.Lock(ctx, owner, enums.LockReasonPlanner)
	require.NoError(t, err)

	state, err := reg.Read(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 75, state.Value)
	assert.Equal(t, []enums.LockReason{enums.LockReasonPlanner}, state.LockReasons)
	assert.True(t, state.UpdatedAt.Equal(fixedNow))

	key := "wd:guest:sess-123:guest_count"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(2 * time.Hour)
	state, err = reg.Read(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Value)
}

func TestSessionStoreLockedErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	store, _ := newSessionStore(t, time.Hour)
	reg, err := NewRegistry(RegistryParams{Store: store})
	require.NoError(t, err)
	owner := SessionOwner("sess-locked")

	_, err = reg.Lock(ctx, owner, enums.LockReasonVenue)
	require.NoError(t, err)
	_, err = reg.SetCount(ctx, owner, 10)
	var locked *LockedError
	assert.ErrorAs(t, err, &locked)
}

func TestSessionStoreRepairsCorruptReasons(t *testing.T) {
	ctx := context.Background()
	store, mr := newSessionStore(t, time.Hour)
	require.NoError(t, mr.Set("wd:guest:s1:guest_count", `{"value":999,"locked":false,"lock_reasons":["venue","venue","bogus"]}`))

	state, err := store.Load(ctx, SessionOwner("s1"))
	require.NoError(t, err)
	assert.Equal(t, MaxCount, state.Value)
	assert.True(t, state.Locked)
	assert.Equal(t, []enums.LockReason{enums.LockReasonVenue}, state.LockReasons)
}

func TestSessionStoreForget(t *testing.T) {
	ctx := context.Background()
	store, mr := newSessionStore(t, time.Hour)
	require.NoError(t, mr.Set("wd:guest:s2:guest_count", `{"value":5}`))
	require.NoError(t, store.Forget(ctx, "s2"))
	assert.False(t, mr.Exists("wd:guest:s2:guest_count"))
}

func TestDualStoreRoutesByOwner(t *testing.T) {
	ctx := context.Background()
	accounts := newMemStore()
	sessions := newMemStore()
	dual := DualStore{Accounts: accounts, Sessions: sessions}

	_, _, err := dual.Apply(ctx, SessionOwner("g"), func(State) (Outcome, error) {
		return Outcome{State: State{Value: 4}, Changed: true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sessions.writes)
	assert.Zero(t, accounts.writes)

	_, err = dual.Load(ctx, Owner{})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}
