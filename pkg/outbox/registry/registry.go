// Package registry knows, for every outbox event type, which aggregate emits
// it, which topic carries it and what its payload looks like.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(raw []byte) (outbox.PayloadEnvelope, any, error)
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw []byte) (outbox.PayloadEnvelope, any, error) {
			envelope, payload, err := Decode[T](raw)
			return envelope, payload, err
		},
	}
}

// ResolvedEvent is an outbox row ready to publish. Payload is a pointer to
// the event's payloads type.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes guest count state changes to their own topic so
// realtime consumers can subscribe without the booking traffic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	booking, guestCount := cfg.BookingTopic, cfg.GuestCountTopic
	switch {
	case booking == "":
		return nil, errors.New("booking topic is required")
	case guestCount == "":
		return nil, errors.New("guest count topic is required")
	}

	descriptors := []EventDescriptor{
		describe[payloads.GuestCountEvent](enums.EventGuestCountUpdated, enums.AggregateAccount, guestCount),
		describe[payloads.GuestCountEvent](enums.EventGuestCountLocked, enums.AggregateAccount, guestCount),
		describe[payloads.GuestCountEvent](enums.EventGuestCountUnlocked, enums.AggregateAccount, guestCount),
		describe[payloads.GuestCountChangeRequestedEvent](enums.EventGuestCountChangeRequested, enums.AggregateChangeRequest, booking),
		describe[payloads.GuestCountChangeResolvedEvent](enums.EventGuestCountChangeResolved, enums.AggregateChangeRequest, booking),
		describe[payloads.GuestSessionClaimedEvent](enums.EventGuestSessionClaimed, enums.AggregateAccount, booking),
		describe[payloads.ContractSignedEvent](enums.EventContractSigned, enums.AggregateContract, booking),
		describe[payloads.ContractPaidEvent](enums.EventContractPaid, enums.AggregateContract, booking),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve validates row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError: the row will not get better.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", row.EventType))
	case desc.AggregateType != row.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}
	envelope, payload, err := desc.decode(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", row.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
