package guestcount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/repo"
	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

const maxNoteLength = 1000

// ChangeRequestRepository persists guest_count_change_requests rows.
type ChangeRequestRepository struct {
	repo.Base
}

func NewChangeRequestRepository(db *gorm.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{Base: repo.NewBase(db)}
}

func (r *ChangeRequestRepository) CreateTx(tx *gorm.DB, req *models.GuestCountChangeRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return tx.Create(req).Error
}

func (r *ChangeRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.GuestCountChangeRequest, error) {
	return repo.First[models.GuestCountChangeRequest](r.DB(ctx), "id = ?", id)
}

func (r *ChangeRequestRepository) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*models.GuestCountChangeRequest, error) {
	return repo.Locked[models.GuestCountChangeRequest](tx, "id = ?", id)
}

func (r *ChangeRequestRepository) SaveTx(tx *gorm.DB, req *models.GuestCountChangeRequest) error {
	return tx.Save(req).Error
}

// ListByAccount returns the account's requests newest first.
func (r *ChangeRequestRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.GuestCountChangeRequest, error) {
	var rows []models.GuestCountChangeRequest
	err := r.DB(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListPending returns every open request oldest first for the admin queue.
func (r *ChangeRequestRepository) ListPending(ctx context.Context) ([]models.GuestCountChangeRequest, error) {
	var rows []models.GuestCountChangeRequest
	err := r.DB(ctx).
		Where("status = ?", enums.ChangeRequestPending).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

type changeRequestStore interface {
	CreateTx(tx *gorm.DB, req *models.GuestCountChangeRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GuestCountChangeRequest, error)
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*models.GuestCountChangeRequest, error)
	SaveTx(tx *gorm.DB, req *models.GuestCountChangeRequest) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.GuestCountChangeRequest, error)
	ListPending(ctx context.Context) ([]models.GuestCountChangeRequest, error)
}

type registryWriter interface {
	Read(ctx context.Context, owner Owner) (State, error)
	ApplyApprovedChange(ctx context.Context, owner Owner, n int) (State, error)
}

// ChangeRequestParams wires ChangeRequestService.
type ChangeRequestParams struct {
	DB       txRunner
	Repo     changeRequestStore
	Registry registryWriter
	Outbox   outbox.Emitter
	Logger   *logger.Logger
	Now      func() time.Time
}

// ChangeRequestService is the path a couple takes when the count is locked:
// they ask, an admin approves or rejects.
type ChangeRequestService struct {
	db       txRunner
	repo     changeRequestStore
	registry registryWriter
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewChangeRequestService(params ChangeRequestParams) (*ChangeRequestService, error) {
	if params.DB == nil {
		return nil, errors.New("db client required")
	}
	if params.Repo == nil {
		return nil, errors.New("change request repository required")
	}
	if params.Registry == nil {
		return nil, errors.New("guest count registry required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ChangeRequestService{
		db:       params.DB,
		repo:     params.Repo,
		registry: params.Registry,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Submit opens a request for a locked account. Unlocked counts are edited
// directly, so asking for a change then is a state conflict.
func (s *ChangeRequestService) Submit(ctx context.Context, accountID uuid.UUID, requested int, note string) (*models.GuestCountChangeRequest, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to request a guest count change")
	}
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note is too long")
	}
	state, err := s.registry.Read(ctx, AccountOwner(accountID))
	if err != nil {
		return nil, err
	}
	if !state.Locked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "guest count is not locked; update it directly")
	}

	req := &models.GuestCountChangeRequest{
		ID:             uuid.New(),
		AccountID:      accountID,
		CurrentValue:   state.Value,
		RequestedValue: Clamp(requested),
		Note:           optionalString(note),
		Status:         enums.ChangeRequestPending,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create change request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestCountChangeRequested,
			AggregateType: enums.AggregateChangeRequest,
			AggregateID:   req.ID,
			Actor:         &outbox.ActorRef{AccountID: accountID, Role: enums.AccountRoleCouple.String()},
			Data: payloads.GuestCountChangeRequestedEvent{
				RequestID:      req.ID,
				AccountID:      accountID,
				CurrentValue:   req.CurrentValue,
				RequestedValue: req.RequestedValue,
				LockReasons:    state.Clone().LockReasons,
				Note:           note,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve writes the requested value and closes the request.
func (s *ChangeRequestService) Approve(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error) {
	pending, err := s.pending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.ApplyApprovedChange(ctx, AccountOwner(pending.AccountID), pending.RequestedValue); err != nil {
		return nil, err
	}
	return s.resolve(ctx, requestID, adminID, enums.ChangeRequestApproved, note)
}

// Reject closes the request without touching the count.
func (s *ChangeRequestService) Reject(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error) {
	if _, err := s.pending(ctx, requestID); err != nil {
		return nil, err
	}
	return s.resolve(ctx, requestID, adminID, enums.ChangeRequestRejected, note)
}

// List returns the account's requests newest first.
func (s *ChangeRequestService) List(ctx context.Context, accountID uuid.UUID) ([]models.GuestCountChangeRequest, error) {
	rows, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list change requests")
	}
	return rows, nil
}

// ListPending returns the admin review queue.
func (s *ChangeRequestService) ListPending(ctx context.Context) ([]models.GuestCountChangeRequest, error) {
	rows, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending change requests")
	}
	return rows, nil
}

func (s *ChangeRequestService) pending(ctx context.Context, requestID uuid.UUID) (*models.GuestCountChangeRequest, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "change request not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load change request")
	}
	if req.Status != enums.ChangeRequestPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "change request already resolved")
	}
	return req, nil
}

func (s *ChangeRequestService) resolve(ctx context.Context, requestID, adminID uuid.UUID, status enums.ChangeRequestStatus, note string) (*models.GuestCountChangeRequest, error) {
	var resolved *models.GuestCountChangeRequest
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		req, err := s.repo.FindForUpdateTx(tx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock change request")
		}
		if req.Status != enums.ChangeRequestPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "change request already resolved")
		}
		reviewedAt := s.now().UTC()
		req.Status = status
		req.ReviewedBy = &adminID
		req.ReviewedAt = &reviewedAt
		req.ReviewNote = optionalString(strings.TrimSpace(note))
		if err := s.repo.SaveTx(tx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update change request")
		}
		resolved = req
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestCountChangeResolved,
			AggregateType: enums.AggregateChangeRequest,
			AggregateID:   req.ID,
			Actor:         &outbox.ActorRef{AccountID: adminID, Role: enums.AccountRoleAdmin.String()},
			Data: payloads.GuestCountChangeResolvedEvent{
				RequestID:      req.ID,
				AccountID:      req.AccountID,
				Status:         status,
				RequestedValue: req.RequestedValue,
				ReviewedBy:     adminID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"request_id": requestID.String(),
			"account_id": resolved.AccountID.String(),
			"status":     string(status),
		})
		s.logg.Info(logCtx, "guest count change request resolved")
	}
	return resolved, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
