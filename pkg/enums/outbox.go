package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAccount       OutboxAggregateType = "account"
	AggregateContract      OutboxAggregateType = "contract"
	AggregateChangeRequest OutboxAggregateType = "guest_count_change_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAccount,
	AggregateContract,
	AggregateChangeRequest,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventGuestCountUpdated         OutboxEventType = "guest_count_updated"
	EventGuestCountLocked          OutboxEventType = "guest_count_locked"
	EventGuestCountUnlocked        OutboxEventType = "guest_count_unlocked"
	EventGuestCountChangeRequested OutboxEventType = "guest_count_change_requested"
	EventGuestCountChangeResolved  OutboxEventType = "guest_count_change_resolved"
	EventGuestSessionClaimed       OutboxEventType = "guest_session_claimed"
	EventContractSigned            OutboxEventType = "contract_signed"
	EventContractPaid              OutboxEventType = "contract_paid"
)

var validOutboxEventTypes = []OutboxEventType{
	EventGuestCountUpdated,
	EventGuestCountLocked,
	EventGuestCountUnlocked,
	EventGuestCountChangeRequested,
	EventGuestCountChangeResolved,
	EventGuestSessionClaimed,
	EventContractSigned,
	EventContractPaid,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
