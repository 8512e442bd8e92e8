package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
	"github.com/wedanddone/wedanddone-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentProcessor charges a tokenized card. *square.Client satisfies it.
type PaymentProcessor interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*square.Payment, error)
}

type contractStore interface {
	FindForAccount(ctx context.Context, accountID, contractID uuid.UUID) (*models.Contract, error)
	FindForUpdateTx(tx *gorm.DB, contractID uuid.UUID) (*models.Contract, error)
	MarkPaidTx(tx *gorm.DB, contractID uuid.UUID, paidAt time.Time) error
}

type guestCountLocker interface {
	Lock(ctx context.Context, owner guestcount.Owner, reason enums.LockReason) (guestcount.State, error)
}

// Service hands a signed contract to the payment processor.
type Service interface {
	Pay(ctx context.Context, input PayInput) (*PayResult, error)
}

// PayInput identifies the contract to settle and the card token to charge.
type PayInput struct {
	AccountID  uuid.UUID
	ContractID uuid.UUID
	SourceID   string
}

// PayResult is returned after the contract has moved to paid. GuestCount is
// nil when the module does not lock the count or locking is disabled.
type PayResult struct {
	Contract   *models.Contract
	Charge     *models.Charge
	GuestCount *guestcount.State
	// LockFailed is set when the payment committed but the follow-up lock did not.
	LockFailed bool
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	DB             txRunner
	Contracts      contractStore
	Charges        Repository
	Processor      PaymentProcessor
	GuestCount     guestCountLocker
	Outbox         outbox.Emitter
	Metrics        *metrics.BookingMetrics
	Logger         *logger.Logger
	LockOnCheckout bool
	Now            func() time.Time
}

type service struct {
	db             txRunner
	contracts      contractStore
	charges        Repository
	processor      PaymentProcessor
	guestCount     guestCountLocker
	outbox         outbox.Emitter
	metrics        *metrics.BookingMetrics
	logg           *logger.Logger
	lockOnCheckout bool
	now            func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Contracts == nil:
		return nil, errors.New("contract repository required")
	case params.Charges == nil:
		return nil, errors.New("charge repository required")
	case params.Processor == nil:
		return nil, errors.New("payment processor required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.LockOnCheckout && params.GuestCount == nil:
		return nil, errors.New("guest count registry required when locking on checkout")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:             params.DB,
		contracts:      params.Contracts,
		charges:        params.Charges,
		processor:      params.Processor,
		guestCount:     params.GuestCount,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		logg:           params.Logger,
		lockOnCheckout: params.LockOnCheckout,
		now:            now,
	}, nil
}

// Pay charges the amount due today and marks the contract paid. The contract id
// is the processor idempotency key, so a retried request never charges twice.
// Nothing is persisted when the processor fails.
func (s *service) Pay(ctx context.Context, input PayInput) (*PayResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to pay for a contract")
	}
	if input.ContractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id is required")
	}
	sourceID := strings.TrimSpace(input.SourceID)
	if sourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}

	contract, err := s.contracts.FindForAccount(ctx, input.AccountID, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	if err := ValidatePayable(contract); err != nil {
		return nil, err
	}

	module := contract.Module.String()
	ctx = s.logContext(ctx, contract)
	idempotencyKey := contract.ID.String()

	var payment *square.Payment
	if contract.DepositCents > 0 {
		started := time.Now()
		payment, err = s.processor.CreatePayment(ctx, square.PaymentCreateParams{
			AmountCents:    contract.DepositCents,
			Currency:       contract.Currency,
			SourceID:       sourceID,
			IdempotencyKey: idempotencyKey,
			ReferenceID:    idempotencyKey,
			Note:           fmt.Sprintf("%s %s", contract.Module.Label(), chargeTypeFor(contract)),
		})
		s.metrics.ObserveCheckout(module, time.Since(started))
		if err != nil {
			s.metrics.IncCheckout(module, "declined")
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout charge failed")
			}
			if pkgerrors.As(err) != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charge payment")
		}
	}

	paidAt := s.now().UTC()
	reason, lockable := contract.Module.LockReasonFor()
	lockable = lockable && s.lockOnCheckout

	var charge *models.Charge
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.contracts.FindForUpdateTx(tx, contract.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock contract")
		}
		if err := ValidatePayable(current); err != nil {
			return err
		}
		if payment != nil {
			charge = chargeFor(current, payment, idempotencyKey)
			if err := s.charges.WithTx(tx).Create(ctx, charge); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record charge")
			}
		}
		if err := s.contracts.MarkPaidTx(tx, current.ID, paidAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark contract paid")
		}
		current.Status = enums.ContractStatusPaid
		current.PaidAt = &paidAt
		contract = current

		event := payloads.ContractPaidEvent{
			ContractID:  current.ID,
			AccountID:   current.AccountID,
			Module:      current.Module,
			AmountCents: current.DepositCents,
		}
		if charge != nil {
			event.ChargeID = charge.ID
			event.ProcessorPaymentID = payment.ID
		}
		if lockable {
			event.LockReason = reason
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContractPaid,
			AggregateType: enums.AggregateContract,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{AccountID: input.AccountID, Role: enums.AccountRoleCouple.String()},
			Data:          event,
			OccurredAt:    paidAt,
		})
	})
	if err != nil {
		s.metrics.IncCheckout(module, "error")
		if s.logg != nil {
			s.logg.Error(ctx, "checkout commit failed", err)
		}
		return nil, err
	}
	s.metrics.IncCheckout(module, "succeeded")

	result := &PayResult{Contract: contract, Charge: charge}
	if lockable {
		state, err := s.guestCount.Lock(ctx, guestcount.AccountOwner(input.AccountID), reason)
		if err != nil {
			result.LockFailed = true
			if s.logg != nil {
				s.logg.Error(s.logg.WithField(ctx, "lock_reason", reason.String()), "guest count lock after checkout failed", err)
			}
		} else {
			result.GuestCount = &state
		}
	}
	if s.logg != nil {
		s.logg.Info(ctx, "contract paid")
	}
	return result, nil
}

func (s *service) logContext(ctx context.Context, contract *models.Contract) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithAccountID(ctx, contract.AccountID.String())
	ctx = s.logg.WithModule(ctx, contract.Module.String())
	return s.logg.WithField(ctx, "contract_id", contract.ID.String())
}

func chargeFor(contract *models.Contract, payment *square.Payment, idempotencyKey string) *models.Charge {
	charge := &models.Charge{
		ID:             uuid.New(),
		ContractID:     contract.ID,
		AccountID:      contract.AccountID,
		Type:           chargeTypeFor(contract),
		AmountCents:    contract.DepositCents,
		Currency:       contract.Currency,
		Status:         enums.ChargeStatusSucceeded,
		IdempotencyKey: idempotencyKey,
	}
	if id := strings.TrimSpace(payment.ID); id != "" {
		charge.ProcessorPaymentID = &id
	}
	return charge
}
