package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/api/middleware"
	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/internal/accounts"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

type GuestSessionClaimer interface {
	ClaimGuestSession(ctx context.Context, accountID uuid.UUID, sessionID string) (*accounts.ClaimResult, error)
}

type claimRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type claimResponse struct {
	AccountID           uuid.UUID          `json:"account_id"`
	AlreadyMerged       bool               `json:"already_merged"`
	GuestCount          guestCountResponse `json:"guest_count"`
	// Set when a locked count was kept over the guest session's value.
	UnappliedGuestCount *int               `json:"unapplied_guest_count,omitempty"`
	Profile             profileResponse    `json:"profile"`
}

// ClaimGuestSession merges the caller's guest data into their account. The
// session comes from the body, or from X-Guest-Session when the body omits it.
func ClaimGuestSession(svc GuestSessionClaimer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload claimRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := strings.TrimSpace(payload.SessionID)
		if sessionID == "" {
			sessionID = middleware.GuestSessionFromContext(r.Context())
		}
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "guest session id is required"))
			return
		}

		result, err := svc.ClaimGuestSession(r.Context(), accountID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, claimResponse{
			AccountID:           result.AccountID,
			AlreadyMerged:       result.AlreadyMerged,
			GuestCount:          newGuestCountResponse(result.GuestCount),
			UnappliedGuestCount: result.UnappliedGuestCount,
			Profile:             newProfileResponse(result.Profile),
		})
	}
}
