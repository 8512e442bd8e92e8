package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

type contextKey string

const (
	ctxAccountID    contextKey = "account_id"
	ctxRole         contextKey = "actor_role"
	ctxGuestSession contextKey = "guest_session"
)

// AccountIDFromContext returns uuid.Nil for guests.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAccountID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.AccountRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.AccountRole); ok {
		return v
	}
	return ""
}

// GuestSessionFromContext returns the X-Guest-Session value, which signed-in
// callers may also send while claiming their guest data.
func GuestSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxGuestSession).(string); ok {
		return v
	}
	return ""
}

// OwnerFromContext resolves who the guest count and profile belong to.
// Accounts take precedence over a guest session.
func OwnerFromContext(ctx context.Context) (guestcount.Owner, bool) {
	if id := AccountIDFromContext(ctx); id != uuid.Nil {
		return guestcount.AccountOwner(id), true
	}
	if session := GuestSessionFromContext(ctx); session != "" {
		return guestcount.SessionOwner(session), true
	}
	return guestcount.Owner{}, false
}

// WithAccount injects a signed-in identity into the context.
func WithAccount(ctx context.Context, accountID uuid.UUID, role enums.AccountRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	return context.WithValue(ctx, ctxRole, role)
}

// WithGuestSession injects an anonymous session into the context.
func WithGuestSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxGuestSession, sessionID)
}
