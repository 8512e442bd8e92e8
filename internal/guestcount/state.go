package guestcount

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// MaxCount is the largest guest count any module prices for.
const MaxCount = 250

// ErrOwnerRequired is returned when neither an account nor a guest session identifies the caller.
var ErrOwnerRequired = errors.New("guest count owner is required")

// Clamp bounds n into [0, MaxCount].
func Clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// Owner identifies whose guest count is being read or written. Signed-in
// couples carry an account id; guests only have their session id.
type Owner struct {
	AccountID uuid.UUID
	SessionID string
}

// AccountOwner builds an owner for a signed-in account.
func AccountOwner(accountID uuid.UUID) Owner {
	return Owner{AccountID: accountID}
}

// SessionOwner builds an owner for an anonymous guest session.
func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: strings.TrimSpace(sessionID)}
}

// IsAccount reports whether the owner is backed by an account record.
func (o Owner) IsAccount() bool {
	return o.AccountID != uuid.Nil
}

// Kind labels the owner for logs and metrics.
func (o Owner) Kind() string {
	if o.IsAccount() {
		return "account"
	}
	return "guest"
}

// Validate ensures the owner can be routed to a store.
func (o Owner) Validate() error {
	if o.IsAccount() || o.SessionID != "" {
		return nil
	}
	return ErrOwnerRequired
}

func (o Owner) String() string {
	if o.IsAccount() {
		return "account:" + o.AccountID.String()
	}
	return "guest:" + o.SessionID
}

// State is the registry value for one owner. Locked is true exactly when
// LockReasons is non-empty.
type State struct {
	Value       int                `json:"value"`
	Locked      bool               `json:"locked"`
	LockReasons []enums.LockReason `json:"lock_reasons"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// HasReason reports whether reason already latched the count.
func (s State) HasReason(reason enums.LockReason) bool {
	return slices.Contains(s.LockReasons, reason)
}

// Clone returns a copy that does not share the reasons slice.
func (s State) Clone() State {
	out := s
	out.LockReasons = slices.Clone(s.LockReasons)
	if out.LockReasons == nil {
		out.LockReasons = []enums.LockReason{}
	}
	return out
}

func (s State) withReason(reason enums.LockReason) State {
	out := s.Clone()
	out.LockReasons = append(out.LockReasons, reason)
	out.Locked = true
	return out
}

func (s State) withoutReason(reason enums.LockReason) State {
	out := s.Clone()
	out.LockReasons = slices.DeleteFunc(out.LockReasons, func(r enums.LockReason) bool { return r == reason })
	out.Locked = len(out.LockReasons) > 0
	return out
}

// normalized repairs states read from storage: drops unknown or duplicate
// reasons and derives Locked from the remaining set.
func (s State) normalized() State {
	out := s.Clone()
	seen := make(map[enums.LockReason]struct{}, len(out.LockReasons))
	reasons := out.LockReasons[:0]
	for _, reason := range out.LockReasons {
		if !reason.IsValid() {
			continue
		}
		if _, dup := seen[reason]; dup {
			continue
		}
		seen[reason] = struct{}{}
		reasons = append(reasons, reason)
	}
	out.LockReasons = reasons
	out.Locked = len(reasons) > 0
	out.Value = Clamp(out.Value)
	return out
}

// EventType names a registry notification.
type EventType string

const (
	EventUpdated  EventType = "updated"
	EventLocked   EventType = "locked"
	EventUnlocked EventType = "unlocked"
)

// OutboxType maps the notification to its durable outbox event type.
func (t EventType) OutboxType() enums.OutboxEventType {
	switch t {
	case EventLocked:
		return enums.EventGuestCountLocked
	case EventUnlocked:
		return enums.EventGuestCountUnlocked
	default:
		return enums.EventGuestCountUpdated
	}
}

// Event is delivered to subscribers after a change is persisted.
type Event struct {
	Type   EventType
	Owner  Owner
	State  State
	Reason enums.LockReason
}
