package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

var testTopics = config.PubSubConfig{BookingTopic: "booking-topic", GuestCountTopic: "guest-count-topic"}

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(testTopics)
	require.NoError(t, err)
	return reg
}

// envelopeOf wraps data (any value, or raw bytes as-is) the way Emit stores it.
func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, time.May, 2, 12, 0, 0, 0, time.UTC),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func TestEventRegistryResolveSuccess(t *testing.T) {
	contractID := uuid.New()
	row := models.OutboxEvent{
		EventType:     enums.EventContractSigned,
		AggregateType: enums.AggregateContract,
		AggregateID:   contractID,
		Payload: envelopeOf(t, payloads.ContractSignedEvent{
			ContractID:   contractID,
			AccountID:    uuid.New(),
			Module:       enums.ModuleFloral,
			PlanType:     enums.PlanTypeDeposit,
			TotalCents:   400000,
			DepositCents: 100000,
		}),
	}

	resolved, err := testRegistry(t).Resolve(row)
	require.NoError(t, err)

	assert.Equal(t, "booking-topic", resolved.Descriptor.Topic)
	require.IsType(t, &payloads.ContractSignedEvent{}, resolved.Payload)
	signed := resolved.Payload.(*payloads.ContractSignedEvent)
	assert.Equal(t, contractID, signed.ContractID)
	assert.EqualValues(t, 100000, signed.DepositCents)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestEventRegistryRoutesGuestCountEventsToOwnTopic(t *testing.T) {
	reg := testRegistry(t)
	state := payloads.GuestCountEvent{
		AccountID:   uuid.New(),
		Value:       120,
		Locked:      true,
		LockReasons: []enums.LockReason{enums.LockReasonVenue},
		UpdatedAt:   time.Date(2026, time.May, 1, 9, 30, 0, 0, time.UTC),
	}

	for _, eventType := range []enums.OutboxEventType{
		enums.EventGuestCountUpdated,
		enums.EventGuestCountLocked,
		enums.EventGuestCountUnlocked,
	} {
		resolved, err := reg.Resolve(models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateAccount,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, state),
		})
		require.NoError(t, err, eventType)
		assert.Equal(t, "guest-count-topic", resolved.Descriptor.Topic, eventType)
		assert.Equal(t, &state, resolved.Payload, eventType)
	}
}

func TestEventRegistryCoversEveryEventType(t *testing.T) {
	reg := testRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventGuestCountUpdated,
		enums.EventGuestCountLocked,
		enums.EventGuestCountUnlocked,
		enums.EventGuestCountChangeRequested,
		enums.EventGuestCountChangeResolved,
		enums.EventGuestSessionClaimed,
		enums.EventContractSigned,
		enums.EventContractPaid,
	} {
		desc, ok := reg.entries[eventType]
		require.True(t, ok, "%s not registered", eventType)
		assert.NotEmpty(t, desc.Topic)
		assert.NotNil(t, desc.decode)
	}
}

func TestEventRegistryResolveRejectsUndeliverableRows(t *testing.T) {
	reg := testRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("reservation_released"),
			AggregateType: enums.AggregateContract,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte(`{"reason":"none"}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventContractPaid,
			AggregateType: enums.AggregateAccount,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventContractSigned,
			AggregateType: enums.AggregateContract,
			Payload:       envelopeOf(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventGuestSessionClaimed,
			AggregateType: enums.AggregateAccount,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte("null")),
		},
		"wrong payload shape": {
			EventType:     enums.EventGuestCountLocked,
			AggregateType: enums.AggregateAccount,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte(`{"value":"many"}`)),
		},
		"not an envelope": {
			EventType:     enums.EventContractPaid,
			AggregateType: enums.AggregateContract,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`[1,2]`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "got %v", err)
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{GuestCountTopic: "g"})
	assert.ErrorContains(t, err, "booking topic")
	_, err = NewEventRegistry(config.PubSubConfig{BookingTopic: "b"})
	assert.ErrorContains(t, err, "guest count topic")
}

func TestDecodeRejectsMalformedEnvelopes(t *testing.T) {
	accountID := uuid.New()
	envelope, claimed, err := Decode[payloads.GuestSessionClaimedEvent](envelopeOf(t, payloads.GuestSessionClaimedEvent{AccountID: accountID}))
	require.NoError(t, err)
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, accountID, claimed.AccountID)

	badID, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: "evt-1", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, _, err = Decode[payloads.GuestSessionClaimedEvent](badID)
	assert.Error(t, err)

	_, _, err = Decode[payloads.GuestSessionClaimedEvent]([]byte("not json"))
	assert.Error(t, err)

	_, _, err = Decode[payloads.GuestSessionClaimedEvent](envelopeOf(t, []byte("null")))
	assert.ErrorIs(t, err, errEmptyData)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("bad row")
	err := NewNonRetryableError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad row", err.Error())
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}
