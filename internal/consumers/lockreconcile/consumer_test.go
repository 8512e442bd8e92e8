package lockreconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/idempotency"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
	pkgredis "github.com/wedanddone/wedanddone-backend/pkg/redis"
)

type lockCall struct {
	owner  guestcount.Owner
	reason enums.LockReason
}

type fakeRegistry struct {
	calls []lockCall
	err   error
}

func (f *fakeRegistry) Lock(_ context.Context, owner guestcount.Owner, reason enums.LockReason) (guestcount.State, error) {
	f.calls = append(f.calls, lockCall{owner: owner, reason: reason})
	if f.err != nil {
		return guestcount.State{}, f.err
	}
	return guestcount.State{Locked: true, LockReasons: []enums.LockReason{reason}}, nil
}

func newConsumer(t *testing.T, registry locker) *Consumer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	claims, err := idempotency.NewManager(pkgredis.NewFromRaw(rdb), time.Hour)
	require.NoError(t, err)
	consumer, err := NewConsumer(noopReceiver{}, registry, claims, logger.New(logger.Options{ServiceName: "lockreconcile-test"}))
	require.NoError(t, err)
	return consumer
}

type noopReceiver struct{}

func (noopReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return nil
}

func paidMessage(t *testing.T, eventID string, event payloads.ContractPaidEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "msg-" + eventID,
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(enums.EventContractPaid), "event_id": eventID},
	}
}

func TestProcessLocksOncePerEvent(t *testing.T) {
	registry := &fakeRegistry{}
	consumer := newConsumer(t, registry)
	accountID := uuid.New()
	msg := paidMessage(t, uuid.NewString(), payloads.ContractPaidEvent{
		ContractID: uuid.New(),
		AccountID:  accountID,
		Module:     enums.ModuleVenue,
		LockReason: enums.LockReasonVenue,
	})

	assert.True(t, consumer.process(context.Background(), msg).ack)
	assert.True(t, consumer.process(context.Background(), msg).ack)

	require.Len(t, registry.calls, 1)
	assert.Equal(t, guestcount.AccountOwner(accountID), registry.calls[0].owner)
	assert.Equal(t, enums.LockReasonVenue, registry.calls[0].reason)
}

func TestProcessSkipsEventsWithoutLock(t *testing.T) {
	registry := &fakeRegistry{}
	consumer := newConsumer(t, registry)

	unlocked := paidMessage(t, uuid.NewString(), payloads.ContractPaidEvent{
		ContractID: uuid.New(),
		AccountID:  uuid.New(),
		Module:     enums.ModuleFloral,
	})
	assert.True(t, consumer.process(context.Background(), unlocked).ack)

	signed := paidMessage(t, uuid.NewString(), payloads.ContractPaidEvent{AccountID: uuid.New(), LockReason: enums.LockReasonVenue})
	signed.Attributes["event_type"] = string(enums.EventContractSigned)
	assert.True(t, consumer.process(context.Background(), signed).ack)

	garbage := &pubsub.Message{ID: "bad", Data: []byte("{"), Attributes: map[string]string{"event_type": string(enums.EventContractPaid)}}
	assert.True(t, consumer.process(context.Background(), garbage).ack)

	assert.Empty(t, registry.calls)
}

func TestProcessNacksAndReleasesOnLockFailure(t *testing.T) {
	registry := &fakeRegistry{err: errors.New("database unavailable")}
	consumer := newConsumer(t, registry)
	msg := paidMessage(t, uuid.NewString(), payloads.ContractPaidEvent{
		ContractID: uuid.New(),
		AccountID:  uuid.New(),
		LockReason: enums.LockReasonCatering,
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.nack)

	registry.err = nil
	assert.True(t, consumer.process(context.Background(), msg).ack)
	assert.Len(t, registry.calls, 2)
}

func TestNewConsumerValidatesDependencies(t *testing.T) {
	_, err := NewConsumer(nil, &fakeRegistry{}, nil, nil)
	assert.Error(t, err)
}
