package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
	"github.com/wedanddone/wedanddone-backend/pkg/redis"
)

const (
	profileDocKind    = "profile"
	guestSessionScope = "guest_session"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type accountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindBySubject(ctx context.Context, subject string) (*models.Account, error)
	CreateTx(tx *gorm.DB, account *models.Account) error
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*models.Account, error)
	UpdateWeddingDate(ctx context.Context, id uuid.UUID, date *time.Time) error
	SaveTx(tx *gorm.DB, account *models.Account) error
}

type guestCountRegistry interface {
	Read(ctx context.Context, owner guestcount.Owner) (guestcount.State, error)
	Adopt(ctx context.Context, account guestcount.Owner, guest guestcount.State) (guestcount.State, error)
}

type sessionForgetter interface {
	Forget(ctx context.Context, sessionID string) error
}

// onceEmitter writes guest_session_claimed at most once per account.
type onceEmitter interface {
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type claimGuard interface {
	Claim(ctx context.Context, scope, id, holder string) (string, bool, error)
	Release(ctx context.Context, scope, id string) error
}

type profileCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	GuestKey(sessionID, kind string) string
}

// Service owns accounts, couple profiles and the one-time guest session merge.
type Service interface {
	EnsureAccount(ctx context.Context, subject, email, displayName string) (*models.Account, error)
	Profile(ctx context.Context, owner guestcount.Owner) (Profile, error)
	SetWeddingDate(ctx context.Context, owner guestcount.Owner, iso string) (Profile, error)
	WeddingDate(ctx context.Context, owner guestcount.Owner) (*time.Time, error)
	ClaimGuestSession(ctx context.Context, accountID uuid.UUID, sessionID string) (*ClaimResult, error)
}

// ServiceParams wires the account service.
type ServiceParams struct {
	DB         txRunner
	Repo       accountRepository
	GuestCount guestCountRegistry
	Sessions   sessionForgetter
	Claims     claimGuard
	Cache      profileCache
	Outbox     onceEmitter
	Logger     *logger.Logger
	SessionTTL time.Duration
	Now        func() time.Time
}

type service struct {
	db         txRunner
	repo       accountRepository
	guestCount guestCountRegistry
	sessions   sessionForgetter
	claims     claimGuard
	cache      profileCache
	outbox     onceEmitter
	logg       *logger.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// ClaimResult describes the merged account after ClaimGuestSession.
type ClaimResult struct {
	AccountID           uuid.UUID        `json:"account_id"`
	AlreadyMerged       bool             `json:"already_merged"`
	GuestCount          guestcount.State `json:"guest_count"`
	// UnappliedGuestCount is the guest session's count when the account's
	// count was already locked and kept. The couple can raise it through a
	// change request.
	UnappliedGuestCount *int             `json:"unapplied_guest_count,omitempty"`
	Profile             Profile          `json:"-"`
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, errors.New("db client required")
	case params.Repo == nil:
		return nil, errors.New("account repository required")
	case params.GuestCount == nil:
		return nil, errors.New("guest count registry required")
	case params.Sessions == nil:
		return nil, errors.New("guest session store required")
	case params.Claims == nil:
		return nil, errors.New("claim guard required")
	case params.Cache == nil:
		return nil, errors.New("profile cache required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.SessionTTL <= 0:
		return nil, errors.New("guest session ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:         params.DB,
		repo:       params.Repo,
		guestCount: params.GuestCount,
		sessions:   params.Sessions,
		claims:     params.Claims,
		cache:      params.Cache,
		outbox:     params.Outbox,
		logg:       params.Logger,
		sessionTTL: params.SessionTTL,
		now:        now,
	}, nil
}

// EnsureAccount returns the account for subject, creating it with an unlocked
// guest count on first sign-in.
func (s *service) EnsureAccount(ctx context.Context, subject, email, displayName string) (*models.Account, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token subject missing")
	}
	account, err := s.repo.FindBySubject(ctx, subject)
	if err == nil {
		return account, nil
	}
	if !dbpkg.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	account = &models.Account{
		ID:              uuid.New(),
		ExternalSubject: subject,
		Email:           strings.ToLower(strings.TrimSpace(email)),
	}
	if name := strings.TrimSpace(displayName); name != "" {
		account.DisplayName = &name
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, account); err != nil {
			return err
		}
		return guestcount.EnsureTx(tx, account.ID, s.now().UTC())
	})
	if dbpkg.IsUniqueViolation(err, "") {
		// A concurrent first request created it.
		existing, findErr := s.repo.FindBySubject(ctx, subject)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load account")
		}
		return existing, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithAccountID(ctx, account.ID.String()), "account created")
	}
	return account, nil
}

func (s *service) Profile(ctx context.Context, owner guestcount.Owner) (Profile, error) {
	if err := owner.Validate(); err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "profile owner missing")
	}
	if owner.IsAccount() {
		account, err := s.loadAccount(ctx, owner.AccountID)
		if err != nil {
			return Profile{}, err
		}
		return profileFromAccount(account), nil
	}
	doc, err := s.loadGuestProfile(ctx, owner.SessionID)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{Guest: true}
	if doc.WeddingDate != "" {
		date, err := caldate.ParseISO(doc.WeddingDate)
		if err == nil {
			profile.WeddingDate = &date
		}
	}
	return profile, nil
}

// SetWeddingDate stores the date; an empty string clears it.
func (s *service) SetWeddingDate(ctx context.Context, owner guestcount.Owner, iso string) (Profile, error) {
	if err := owner.Validate(); err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "profile owner missing")
	}
	date, err := caldate.ParseOptionalISO(iso)
	if err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wedding date").
			WithDetails(map[string]any{"wedding_date": err.Error()})
	}
	if owner.IsAccount() {
		err := s.repo.UpdateWeddingDate(ctx, owner.AccountID, date)
		if dbpkg.IsNotFound(err) {
			return Profile{}, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		if err != nil {
			return Profile{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wedding date")
		}
		return s.Profile(ctx, owner)
	}

	doc := guestProfile{}
	if date != nil {
		doc.WeddingDate = caldate.FormatISO(*date)
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest profile")
	}
	if err := s.cache.Set(ctx, s.cache.GuestKey(owner.SessionID, profileDocKind), string(encoded), s.sessionTTL); err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest profile")
	}
	return Profile{Guest: true, WeddingDate: date}, nil
}

func (s *service) WeddingDate(ctx context.Context, owner guestcount.Owner) (*time.Time, error) {
	profile, err := s.Profile(ctx, owner)
	if err != nil {
		return nil, err
	}
	return profile.WeddingDate, nil
}

// ClaimGuestSession folds a guest session into the account exactly once. The
// guest's guest count is merged through the registry, the wedding date is
// adopted if the account has none, and the transient copies are removed.
// Claiming the same session again for the same account is a no-op.
func (s *service) ClaimGuestSession(ctx context.Context, accountID uuid.UUID, sessionID string) (*ClaimResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to claim a guest session")
	}
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest session id is required")
	}
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ClaimedGuestSession != nil && *account.ClaimedGuestSession != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "account already merged a guest session")
	}

	holder, claimed, err := s.claims.Claim(ctx, guestSessionScope, sessionID, accountID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim guest session")
	}
	if !claimed {
		if holder != accountID.String() {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "guest session already claimed")
		}
		if account.GuestSessionMergedAt != nil {
			return s.alreadyMerged(ctx, account)
		}
		// Same account retrying after a failed merge; fall through and finish it.
	}

	result, err := s.merge(ctx, account, sessionID)
	if err != nil {
		if releaseErr := s.claims.Release(ctx, guestSessionScope, sessionID); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, "release guest session claim", releaseErr)
		}
		return nil, err
	}

	if err := s.sessions.Forget(ctx, sessionID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithGuestSession(ctx, sessionID), "guest count copy not removed after merge")
	}
	if err := s.cache.Del(ctx, s.cache.GuestKey(sessionID, profileDocKind)); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithGuestSession(ctx, sessionID), "guest profile copy not removed after merge")
	}
	if s.logg != nil {
		logCtx := s.logg.WithGuestSession(s.logg.WithAccountID(ctx, accountID.String()), sessionID)
		s.logg.Info(logCtx, "guest session merged into account")
	}
	return result, nil
}

func (s *service) merge(ctx context.Context, account *models.Account, sessionID string) (*ClaimResult, error) {
	guestOwner := guestcount.SessionOwner(sessionID)
	guestState, err := s.guestCount.Read(ctx, guestOwner)
	if err != nil {
		return nil, err
	}
	guestDoc, err := s.loadGuestProfile(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged, err := s.guestCount.Adopt(ctx, guestcount.AccountOwner(account.ID), guestState)
	if err != nil {
		return nil, err
	}

	var saved *models.Account
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.FindForUpdateTx(tx, account.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
		}
		if locked.WeddingDate == nil && guestDoc.WeddingDate != "" {
			if date, parseErr := caldate.ParseISO(guestDoc.WeddingDate); parseErr == nil {
				locked.WeddingDate = &date
			}
		}
		mergedAt := s.now().UTC()
		locked.ClaimedGuestSession = &sessionID
		locked.GuestSessionMergedAt = &mergedAt
		if err := s.repo.SaveTx(tx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark guest session merged")
		}
		saved = locked

		weddingDate := ""
		if locked.WeddingDate != nil {
			weddingDate = caldate.FormatISO(caldate.Normalize(*locked.WeddingDate))
		}
		return s.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestSessionClaimed,
			AggregateType: enums.AggregateAccount,
			AggregateID:   locked.ID,
			Actor:         &outbox.ActorRef{AccountID: locked.ID, Role: enums.AccountRoleCouple.String()},
			Data: payloads.GuestSessionClaimedEvent{
				AccountID:       locked.ID,
				GuestCountValue: merged.Value,
				WeddingDate:     weddingDate,
			},
			OccurredAt: mergedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	result := &ClaimResult{
		AccountID:  saved.ID,
		GuestCount: merged,
		Profile:    profileFromAccount(saved),
	}
	if merged.Locked && guestState.Value != 0 && guestState.Value != merged.Value {
		unapplied := guestState.Value
		result.UnappliedGuestCount = &unapplied
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(s.logg.WithAccountID(ctx, saved.ID.String()), map[string]any{
				"guest_value":  unapplied,
				"locked_value": merged.Value,
			}), "locked guest count kept over guest session value")
		}
	}
	return result, nil
}

func (s *service) alreadyMerged(ctx context.Context, account *models.Account) (*ClaimResult, error) {
	state, err := s.guestCount.Read(ctx, guestcount.AccountOwner(account.ID))
	if err != nil {
		return nil, err
	}
	return &ClaimResult{
		AccountID:     account.ID,
		AlreadyMerged: true,
		GuestCount:    state,
		Profile:       profileFromAccount(account),
	}, nil
}

func (s *service) loadAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func (s *service) loadGuestProfile(ctx context.Context, sessionID string) (guestProfile, error) {
	raw, err := s.cache.Get(ctx, s.cache.GuestKey(sessionID, profileDocKind))
	if errors.Is(err, redis.Nil) {
		return guestProfile{}, nil
	}
	if err != nil {
		return guestProfile{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest profile")
	}
	var doc guestProfile
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return guestProfile{}, nil
	}
	return doc, nil
}
