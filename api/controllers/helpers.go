package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/api/middleware"
	"github.com/wedanddone/wedanddone-backend/api/validators"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
)

func ownerFromRequest(r *http.Request) (guestcount.Owner, error) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		return guestcount.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return owner, nil
}

func accountFromRequest(r *http.Request) (uuid.UUID, error) {
	id := middleware.AccountIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to continue")
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// decodeOptionalBody accepts an empty body for endpoints whose fields are all optional.
func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return validators.ValidateStruct(dest)
	}
	return validators.DecodeJSONBody(r, dest)
}
