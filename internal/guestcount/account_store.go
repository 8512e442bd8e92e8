package guestcount

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	DB() *gorm.DB
}

// AccountStore keeps guest counts in the guest_counts table. Every change and
// its outbox rows commit in one transaction.
type AccountStore struct {
	db     txRunner
	outbox outbox.Emitter
}

func NewAccountStore(db txRunner, emitter outbox.Emitter) (*AccountStore, error) {
	if db == nil {
		return nil, errors.New("db client required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &AccountStore{db: db, outbox: emitter}, nil
}

func (s *AccountStore) Load(ctx context.Context, owner Owner) (State, error) {
	if !owner.IsAccount() {
		return State{}, ErrOwnerRequired
	}
	var row models.GuestCount
	err := s.db.DB().WithContext(ctx).Where("account_id = ?", owner.AccountID).First(&row).Error
	if dbpkg.IsNotFound(err) {
		return State{}.Clone(), nil
	}
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest count")
	}
	return stateFromRow(row), nil
}

func (s *AccountStore) Apply(ctx context.Context, owner Owner, mutate Mutation) (State, []Event, error) {
	if !owner.IsAccount() {
		return State{}, nil, ErrOwnerRequired
	}
	var (
		result State
		events []Event
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var row models.GuestCount
		found := true
		err := dbpkg.ForUpdate(tx).Where("account_id = ?", owner.AccountID).First(&row).Error
		if dbpkg.IsNotFound(err) {
			found = false
			row = models.GuestCount{AccountID: owner.AccountID, LockReasons: pq.StringArray{}}
		} else if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock guest count row")
		}

		outcome, err := mutate(stateFromRow(row))
		if err != nil {
			return err
		}
		result = outcome.State.Clone()
		events = outcome.Events
		if !outcome.Changed {
			return nil
		}

		applyState(&row, result)
		if found {
			err = tx.Save(&row).Error
		} else {
			err = tx.Create(&row).Error
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist guest count")
		}

		for _, event := range events {
			if err := s.outbox.Emit(ctx, tx, outboxEvent(owner.AccountID, event)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue guest count event")
			}
		}
		return nil
	})
	if err != nil {
		return State{}, nil, err
	}
	return result, events, nil
}

// EnsureTx creates the unlocked row for a new account inside the caller's transaction.
func EnsureTx(tx *gorm.DB, accountID uuid.UUID, now time.Time) error {
	row := models.GuestCount{
		AccountID:   accountID,
		LockReasons: pq.StringArray{},
		UpdatedAt:   now,
	}
	return tx.Where("account_id = ?", accountID).FirstOrCreate(&row).Error
}

func stateFromRow(row models.GuestCount) State {
	reasons := make([]enums.LockReason, 0, len(row.LockReasons))
	for _, raw := range row.LockReasons {
		reasons = append(reasons, enums.LockReason(raw))
	}
	return State{
		Value:       row.Value,
		LockReasons: reasons,
		UpdatedAt:   row.UpdatedAt.UTC(),
	}.normalized()
}

func applyState(row *models.GuestCount, state State) {
	reasons := make(pq.StringArray, 0, len(state.LockReasons))
	for _, reason := range state.LockReasons {
		reasons = append(reasons, reason.String())
	}
	row.Value = state.Value
	row.Locked = state.Locked
	row.LockReasons = reasons
	row.UpdatedAt = state.UpdatedAt
}

func outboxEvent(accountID uuid.UUID, event Event) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     event.Type.OutboxType(),
		AggregateType: enums.AggregateAccount,
		AggregateID:   accountID,
		Actor:         &outbox.ActorRef{AccountID: accountID},
		Data: payloads.GuestCountEvent{
			AccountID:   accountID,
			Value:       event.State.Value,
			Locked:      event.State.Locked,
			LockReasons: event.State.Clone().LockReasons,
			Reason:      event.Reason,
			UpdatedAt:   event.State.UpdatedAt,
		},
		OccurredAt: event.State.UpdatedAt,
	}
}
