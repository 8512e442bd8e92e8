package controllers

import (
	"context"
	"net/http"

	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/api/validators"
	"github.com/wedanddone/wedanddone-backend/internal/accounts"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// ProfileService is the slice of accounts.Service the profile routes use.
type ProfileService interface {
	Profile(ctx context.Context, owner guestcount.Owner) (accounts.Profile, error)
	SetWeddingDate(ctx context.Context, owner guestcount.Owner, iso string) (accounts.Profile, error)
}

func GetProfile(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Profile(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProfileResponse(profile))
	}
}

type updateProfileRequest struct {
	// Empty clears the date.
	WeddingDate string `json:"wedding_date" validate:"omitempty,iso_date"`
}

func UpdateProfile(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.SetWeddingDate(r.Context(), owner, payload.WeddingDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProfileResponse(profile))
	}
}
