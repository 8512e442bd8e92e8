package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/pkg/auth"
	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// GuestSessionHeader carries the anonymous session id minted by the web app.
const GuestSessionHeader = "X-Guest-Session"

var guestSessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// AccountResolver maps a verified identity token onto an account row.
type AccountResolver interface {
	EnsureAccount(ctx context.Context, subject, email, displayName string) (*models.Account, error)
}

// Identity resolves the caller. A bearer token makes the caller an account
// owner; otherwise a well-formed X-Guest-Session makes them a guest. Requests
// carrying neither are rejected.
func Identity(cfg config.JWTConfig, accounts AccountResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			session := strings.TrimSpace(r.Header.Get(GuestSessionHeader))
			if session != "" {
				if !guestSessionPattern.MatchString(session) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid guest session"))
					return
				}
				ctx = WithGuestSession(ctx, session)
				if logg != nil {
					ctx = logg.WithGuestSession(ctx, session)
				}
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				if session == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := auth.ParseIdentityToken(cfg, time.Now(), token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if accounts == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
				return
			}

			account, err := accounts.EnsureAccount(ctx, claims.Subject, claims.NormalizedEmail(), claims.Name)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			role := claims.EffectiveRole()
			ctx = WithAccount(ctx, account.ID, role)
			if logg != nil {
				ctx = logg.WithAccountID(ctx, account.ID.String())
				ctx = logg.WithActorRole(ctx, role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccount rejects guests from routes that need a persisted account.
func RequireAccount(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AccountIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to continue"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
