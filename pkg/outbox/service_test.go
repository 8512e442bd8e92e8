package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/repo/repotest"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

func claimedEvent(accountID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventGuestSessionClaimed,
		AggregateType: enums.AggregateAccount,
		AggregateID:   accountID,
		Actor:         &outbox.ActorRef{AccountID: accountID, Role: enums.AccountRoleCouple.String()},
		Data:          payloads.GuestSessionClaimedEvent{AccountID: accountID},
		OccurredAt:    time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := repotest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	accountID := uuid.New()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, claimedEvent(accountID))
	}))

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventGuestSessionClaimed, rows[0].EventType)
	assert.Equal(t, accountID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, accountID, envelope.Actor.AccountID)
}

func TestEmitRejectsUnknownTypeAndMissingTx(t *testing.T) {
	conn := repotest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	err := svc.Emit(context.Background(), nil, claimedEvent(uuid.New()))
	assert.Error(t, err)

	event := claimedEvent(uuid.New())
	event.EventType = "order_created"
	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	})
	assert.Error(t, err)
}

func TestEmitOnceWritesOnce(t *testing.T) {
	conn := repotest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	accountID := uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitOnce(context.Background(), tx, claimedEvent(accountID))
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := repotest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	boom := errors.New("state change failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, claimedEvent(uuid.New())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := repotest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, claimedEvent(uuid.New()))
		}))
	}

	var fetched []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 3)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, fetched[0].ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, fetched[1].ID, errors.New("deadline exceeded")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, fetched[2].ID, errors.New("bad payload"), 3)
	}))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		remaining, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, remaining, 1)
	assert.Equal(t, fetched[1].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)
	assert.Equal(t, "deadline exceeded", *remaining[0].LastError)
}

func TestDLQRepositoryInsertAndList(t *testing.T) {
	conn := repotest.Open(t)
	dlq := outbox.NewDLQRepository(conn)
	eventID := uuid.New()
	msg := "max publish attempts reached"

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventContractPaid,
			AggregateType: enums.AggregateContract,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  10,
		})
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, found.ErrorReason)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := dlq.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDLQRepositoryClipsLongMessagesOnRuneBoundary(t *testing.T) {
	conn := repotest.Open(t)
	dlq := outbox.NewDLQRepository(conn)
	eventID := uuid.New()
	msg := "x" + strings.Repeat("é", 800)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventContractSigned,
			AggregateType: enums.AggregateContract,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &msg,
		})
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found.ErrorMessage)
	assert.LessOrEqual(t, len(*found.ErrorMessage), 1024)
	assert.True(t, utf8.ValidString(*found.ErrorMessage))
	assert.True(t, strings.HasPrefix(msg, *found.ErrorMessage))
}

func TestEmitDefaultsVersionAndOccurredAt(t *testing.T) {
	conn := repotest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	event := claimedEvent(uuid.New())
	event.OccurredAt = time.Time{}
	event.Version = -3

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.False(t, envelope.OccurredAt.IsZero())
}
