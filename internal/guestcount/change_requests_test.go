package guestcount

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/repo/repotest"
	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
)

type changeRequestFixture struct {
	svc  *ChangeRequestService
	reg  *Registry
	conn *gorm.DB
}

func newChangeRequestFixture(t *testing.T) changeRequestFixture {
	t.Helper()
	conn := repotest.Open(t)
	client := dbpkg.Wrap(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	store, err := NewAccountStore(client, emitter)
	require.NoError(t, err)
	reg, err := NewRegistry(RegistryParams{Store: store, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	svc, err := NewChangeRequestService(ChangeRequestParams{
		DB:       client,
		Repo:     NewChangeRequestRepository(conn),
		Registry: reg,
		Outbox:   emitter,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return changeRequestFixture{svc: svc, reg: reg, conn: conn}
}

func TestSubmitRequiresLockedCount(t *testing.T) {
	f := newChangeRequestFixture(t)
	accountID := uuid.New()

	_, err := f.svc.Submit(context.Background(), accountID, 100, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Submit(context.Background(), uuid.Nil, 100, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestApproveAppliesValueAndKeepsLock(t *testing.T) {
	ctx := context.Background()
	f := newChangeRequestFixture(t)
	accountID := uuid.New()
	owner := AccountOwner(accountID)
	adminID := uuid.New()

	_, err := f.reg.SetCount(ctx, owner, 100)
	require.NoError(t, err)
	_, err = f.reg.Lock(ctx, owner, enums.LockReasonVenue)
	require.NoError(t, err)

	req, err := f.svc.Submit(ctx, accountID, 400, "  cousins confirmed  ")
	require.NoError(t, err)
	assert.Equal(t, enums.ChangeRequestPending, req.Status)
	assert.Equal(t, 100, req.CurrentValue)
	assert.Equal(t, MaxCount, req.RequestedValue)
	require.NotNil(t, req.Note)
	assert.Equal(t, "cousins confirmed", *req.Note)

	approved, err := f.svc.Approve(ctx, req.ID, adminID, "ok")
	require.NoError(t, err)
	assert.Equal(t, enums.ChangeRequestApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, adminID, *approved.ReviewedBy)

	state, err := f.reg.Read(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, MaxCount, state.Value)
	assert.True(t, state.Locked)

	_, err = f.svc.Approve(ctx, req.ID, adminID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var types []enums.OutboxEventType
	require.NoError(t, f.conn.Table("outbox_events").Order("created_at ASC").Pluck("event_type", &types).Error)
	assert.Equal(t, []enums.OutboxEventType{
		enums.EventGuestCountUpdated,
		enums.EventGuestCountLocked,
		enums.EventGuestCountChangeRequested,
		enums.EventGuestCountUpdated,
		enums.EventGuestCountChangeResolved,
	}, types)
}

func TestRejectLeavesCountUntouched(t *testing.T) {
	ctx := context.Background()
	f := newChangeRequestFixture(t)
	accountID := uuid.New()
	owner := AccountOwner(accountID)

	_, _ = f.reg.SetCount(ctx, owner, 80)
	_, _ = f.reg.Lock(ctx, owner, enums.LockReasonCatering)
	req, err := f.svc.Submit(ctx, accountID, 95, "")
	require.NoError(t, err)
	assert.Nil(t, req.Note)

	rejected, err := f.svc.Reject(ctx, req.ID, uuid.New(), "catering is final")
	require.NoError(t, err)
	assert.Equal(t, enums.ChangeRequestRejected, rejected.Status)

	state, err := f.reg.Read(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 80, state.Value)

	list, err := f.svc.List(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, enums.ChangeRequestRejected, list[0].Status)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolveUnknownRequest(t *testing.T) {
	f := newChangeRequestFixture(t)
	_, err := f.svc.Reject(context.Background(), uuid.New(), uuid.New(), "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
