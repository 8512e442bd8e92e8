package controllers

import (
	"net/http"

	"github.com/wedanddone/wedanddone-backend/api/middleware"
	"github.com/wedanddone/wedanddone-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing reports how the caller was identified.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if owner, ok := middleware.OwnerFromContext(r.Context()); ok {
			payload["owner"] = owner.Kind()
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role.String()
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{
			"scope":      "admin",
			"status":     "ok",
			"account_id": middleware.AccountIDFromContext(r.Context()).String(),
		}
		responses.WriteSuccess(w, payload)
	}
}
