package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/api/middleware"
	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/api/validators"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// LockRegistry is the admin view of the guest count registry.
type LockRegistry interface {
	GuestCountReader
	Lock(ctx context.Context, owner guestcount.Owner, reason enums.LockReason) (guestcount.State, error)
	Unlock(ctx context.Context, owner guestcount.Owner, reason enums.LockReason) (guestcount.State, error)
}

type ChangeRequestReviewer interface {
	Approve(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error)
	Reject(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error)
	ListPending(ctx context.Context) ([]models.GuestCountChangeRequest, error)
}

// DLQReader is the admin view of outbox dead letters.
type DLQReader interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type lockRequest struct {
	Reason string `json:"reason" validate:"required,lock_reason"`
}

type reviewRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

func AdminGetGuestCount(registry LockRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest count registry unavailable"))
			return
		}
		accountID, err := uuidParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := registry.Read(r.Context(), guestcount.AccountOwner(accountID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newGuestCountResponse(state))
	}
}

// AdminLockGuestCount latches a reason manually, e.g. for a booking taken offline.
func AdminLockGuestCount(registry LockRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest count registry unavailable"))
			return
		}
		accountID, err := uuidParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload lockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := registry.Lock(r.Context(), guestcount.AccountOwner(accountID), enums.LockReason(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newGuestCountResponse(state))
	}
}

// AdminUnlockGuestCount removes one reason; the count stays locked while others remain.
func AdminUnlockGuestCount(registry LockRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest count registry unavailable"))
			return
		}
		accountID, err := uuidParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := lockRequest{Reason: strings.TrimSpace(chi.URLParam(r, "reason"))}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := registry.Unlock(r.Context(), guestcount.AccountOwner(accountID), enums.LockReason(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newGuestCountResponse(state))
	}
}

func AdminPendingChangeRequests(svc ChangeRequestReviewer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "change request service unavailable"))
			return
		}
		rows, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newChangeRequestList(rows))
	}
}

func AdminApproveChangeRequest(svc ChangeRequestReviewer, logg *logger.Logger) http.HandlerFunc {
	return reviewChangeRequest(logg, svc, func(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error) {
		return svc.Approve(ctx, requestID, adminID, note)
	})
}

func AdminRejectChangeRequest(svc ChangeRequestReviewer, logg *logger.Logger) http.HandlerFunc {
	return reviewChangeRequest(logg, svc, func(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error) {
		return svc.Reject(ctx, requestID, adminID, note)
	})
}

type reviewFunc func(ctx context.Context, requestID, adminID uuid.UUID, note string) (*models.GuestCountChangeRequest, error)

func reviewChangeRequest(logg *logger.Logger, svc ChangeRequestReviewer, review reviewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "change request service unavailable"))
			return
		}
		requestID, err := uuidParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reviewRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID := middleware.AccountIDFromContext(r.Context())
		req, err := review(r.Context(), requestID, adminID, validators.Note(payload.Note))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newChangeRequestResponse(req))
	}
}

func AdminListDLQ(dlq DLQReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dlq == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := dlq.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		responses.WriteSuccess(w, newDLQList(rows))
	}
}

func AdminGetDLQ(dlq DLQReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dlq == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		eventID, err := uuidParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := dlq.FindByEventID(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letter"))
			return
		}
		if row == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		}
		responses.WriteSuccess(w, newDLQEntry(*row))
	}
}
