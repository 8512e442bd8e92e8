package contracts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/internal/paymentplan"
	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

const (
	maxLineItems      = 50
	maxLineItemLength = 280
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type contractRepository interface {
	CreateTx(tx *gorm.DB, contract *models.Contract) error
	FindForAccount(ctx context.Context, accountID, contractID uuid.UUID) (*models.Contract, error)
	ActiveForModuleTx(tx *gorm.DB, accountID uuid.UUID, module enums.BoutiqueModule) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Contract, error)
}

type weddingDateSource interface {
	WeddingDate(ctx context.Context, owner guestcount.Owner) (*time.Time, error)
}

// QuoteInput is what a wizard sends while the couple edits a module.
type QuoteInput struct {
	Module    enums.BoutiqueModule
	Total     decimal.Decimal
	PayInFull bool
}

// SignInput is the sign step: the plan choice plus the signature captured
// against the quoted fingerprint.
type SignInput struct {
	AccountID    uuid.UUID
	Module       enums.BoutiqueModule
	Total        decimal.Decimal
	PayInFull    bool
	Fingerprint  string
	SignatureRef string
	LineItems    []string
}

// ServiceParams wires the contract service.
type ServiceParams struct {
	DB       txRunner
	Repo     contractRepository
	Profiles weddingDateSource
	Outbox   outbox.Emitter
	Metrics  *metrics.BookingMetrics
	Logger   *logger.Logger
	Currency string
	Now      func() time.Time
}

// Service quotes payment plans and persists them once signed.
type Service struct {
	db       txRunner
	repo     contractRepository
	profiles weddingDateSource
	outbox   outbox.Emitter
	metrics  *metrics.BookingMetrics
	logg     *logger.Logger
	currency string
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Repo == nil:
		return nil, errors.New("contract repository required")
	case params.Profiles == nil:
		return nil, errors.New("profile source required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = enums.CurrencyUSD.String()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		profiles: params.Profiles,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		currency: currency,
		now:      now,
	}, nil
}

// Quote computes the plan for the owner's current wedding date. Nothing is stored.
func (s *Service) Quote(ctx context.Context, owner guestcount.Owner, input QuoteInput) (paymentplan.Plan, error) {
	plan, err := s.compute(ctx, owner, input.Module, input.Total, input.PayInFull)
	if err != nil {
		return paymentplan.Plan{}, err
	}
	s.metrics.IncPlanQuote(plan.Module.String(), plan.PlanType().String())
	return plan, nil
}

// Sign recomputes the plan server side and persists every plan field with the
// signature in one transaction. A fingerprint that no longer matches means the
// signature was drawn for a different plan and must be captured again.
func (s *Service) Sign(ctx context.Context, input SignInput) (*models.Contract, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to sign a contract")
	}
	draft := Draft{
		Module:    input.Module,
		Total:     input.Total,
		PayInFull: input.PayInFull,
	}
	draft.CaptureSignature(input.SignatureRef, input.Fingerprint)
	if !draft.Signed() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "signature and plan fingerprint are required")
	}
	lineItems, err := cleanLineItems(input.LineItems)
	if err != nil {
		return nil, err
	}

	plan, err := s.compute(ctx, guestcount.AccountOwner(input.AccountID), draft.Module, draft.Total, draft.PayInFull)
	if err != nil {
		return nil, err
	}
	fingerprint := plan.Fingerprint()
	if !draft.SignedFor(fingerprint) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plan changed since it was signed; review and sign again").
			WithDetails(map[string]any{"fingerprint": fingerprint})
	}

	contract := contractFromPlan(plan, input.AccountID, s.currency)
	contract.PlanFingerprint = fingerprint
	contract.SignatureRef = draft.SignatureRef
	contract.LineItems = lineItems
	contract.SignedAt = s.now().UTC()

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		active, err := s.repo.ActiveForModuleTx(tx, input.AccountID, plan.Module)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing contracts")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "this module is already under contract")
		}
		if err := s.repo.CreateTx(tx, contract); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save contract")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContractSigned,
			AggregateType: enums.AggregateContract,
			AggregateID:   contract.ID,
			Actor:         &outbox.ActorRef{AccountID: input.AccountID, Role: enums.AccountRoleCouple.String()},
			Data:          signedPayload(contract),
			OccurredAt:    contract.SignedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithModule(s.logg.WithAccountID(ctx, input.AccountID.String()), plan.Module.String())
		s.logg.Info(s.logg.WithField(logCtx, "contract_id", contract.ID.String()), "contract signed")
	}
	return contract, nil
}

func (s *Service) Get(ctx context.Context, accountID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.FindForAccount(ctx, accountID, contractID)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	return contract, nil
}

func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]models.Contract, error) {
	rows, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	return rows, nil
}

func (s *Service) compute(ctx context.Context, owner guestcount.Owner, module enums.BoutiqueModule, total decimal.Decimal, payInFull bool) (paymentplan.Plan, error) {
	policy, err := paymentplan.PolicyFor(module)
	if err != nil {
		return paymentplan.Plan{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown module").
			WithDetails(map[string]any{"module": string(module)})
	}
	weddingDate, err := s.profiles.WeddingDate(ctx, owner)
	if err != nil {
		return paymentplan.Plan{}, err
	}
	plan, err := paymentplan.Compute(paymentplan.Input{
		Total:       total,
		PayInFull:   payInFull,
		WeddingDate: weddingDate,
		Policy:      policy,
		Now:         s.now(),
	})
	var invalid *paymentplan.InvalidAmountError
	if errors.As(err, &invalid) {
		return paymentplan.Plan{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "total must not be negative").
			WithDetails(map[string]any{"total": money.Format(invalid.Total)})
	}
	if err != nil {
		return paymentplan.Plan{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute payment plan")
	}
	return plan, nil
}

func contractFromPlan(plan paymentplan.Plan, accountID uuid.UUID, currency string) *models.Contract {
	contract := &models.Contract{
		ID:                   uuid.New(),
		AccountID:            accountID,
		Module:               plan.Module,
		Status:               enums.ContractStatusSigned,
		PlanType:             plan.PlanType(),
		Currency:             currency,
		TotalCents:           money.ToCents(plan.Total),
		DepositCents:         money.ToCents(plan.Deposit),
		RemainingCents:       money.ToCents(plan.RemainingBalance),
		LeadDays:             plan.LeadDays,
		InstallmentMonths:    plan.InstallmentMonths,
		PerInstallmentCents:  plan.PerInstallmentCents,
		LastInstallmentCents: plan.LastInstallmentCents,
		LineItems:            pq.StringArray{},
	}
	if plan.FinalDueDate != nil {
		finalDue := *plan.FinalDueDate
		contract.FinalDueDate = &finalDue
	}
	if plan.NextChargeDate != nil && plan.HasInstallments() {
		next := *plan.NextChargeDate
		contract.NextChargeDate = &next
	}
	return contract
}

func signedPayload(c *models.Contract) payloads.ContractSignedEvent {
	event := payloads.ContractSignedEvent{
		ContractID:           c.ID,
		AccountID:            c.AccountID,
		Module:               c.Module,
		PlanType:             c.PlanType,
		TotalCents:           c.TotalCents,
		DepositCents:         c.DepositCents,
		RemainingCents:       c.RemainingCents,
		InstallmentMonths:    c.InstallmentMonths,
		PerInstallmentCents:  c.PerInstallmentCents,
		LastInstallmentCents: c.LastInstallmentCents,
		LineItems:            append([]string{}, c.LineItems...),
		SignatureRef:         c.SignatureRef,
	}
	if c.FinalDueDate != nil {
		event.FinalDueDate = caldate.FormatISO(*c.FinalDueDate)
	}
	return event
}

func cleanLineItems(items []string) (pq.StringArray, error) {
	out := pq.StringArray{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(item) > maxLineItemLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item is too long")
		}
		out = append(out, item)
	}
	if len(out) > maxLineItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many line items")
	}
	return out, nil
}
