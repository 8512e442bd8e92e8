package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/api/validators"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

type GuestCountReader interface {
	Read(ctx context.Context, owner guestcount.Owner) (guestcount.State, error)
}

type GuestCountEditor interface {
	GuestCountReader
	SetCount(ctx context.Context, owner guestcount.Owner, n int) (guestcount.State, error)
}

type ChangeRequestSubmitter interface {
	Submit(ctx context.Context, accountID uuid.UUID, requested int, note string) (*models.GuestCountChangeRequest, error)
	List(ctx context.Context, accountID uuid.UUID) ([]models.GuestCountChangeRequest, error)
}

func GetGuestCount(registry GuestCountReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest count registry unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := registry.Read(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newGuestCountResponse(state))
	}
}

type setGuestCountRequest struct {
	Value *int `json:"value" validate:"required"`
}

// SetGuestCount writes a new value, clamped to the supported range. A locked
// count answers 423 and points at the change request route.
func SetGuestCount(registry GuestCountEditor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest count registry unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setGuestCountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := registry.SetCount(r.Context(), owner, *payload.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newGuestCountResponse(state))
	}
}

func ListChangeRequests(svc ChangeRequestSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "change request service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newChangeRequestList(rows))
	}
}

type changeRequestBody struct {
	RequestedValue *int   `json:"requested_value" validate:"required"`
	Note           string `json:"note" validate:"max=1000"`
}

func SubmitChangeRequest(svc ChangeRequestSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "change request service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload changeRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Submit(r.Context(), accountID, *payload.RequestedValue, validators.Note(payload.Note))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newChangeRequestResponse(req))
	}
}
