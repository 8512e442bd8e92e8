package logger

import (
	"context"
	"strings"
)

// Field names shared by every binary so dashboards can join on them.
const (
	FieldRequestID    = "request_id"
	FieldAccountID    = "account_id"
	FieldGuestSession = "guest_session"
	FieldModule       = "module"
	FieldActorRole    = "actor_role"
)

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, FieldRequestID, requestID)
}

func (l *Logger) WithAccountID(ctx context.Context, accountID string) context.Context {
	return l.WithField(ctx, FieldAccountID, accountID)
}

// WithGuestSession tags anonymous wizard traffic; the raw session id never hits the logs.
func (l *Logger) WithGuestSession(ctx context.Context, sessionID string) context.Context {
	return l.WithField(ctx, FieldGuestSession, maskSession(sessionID))
}

func (l *Logger) WithModule(ctx context.Context, module string) context.Context {
	return l.WithField(ctx, FieldModule, module)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, FieldActorRole, role)
}

func maskSession(id string) string {
	const visible = 6
	id = strings.TrimSpace(id)
	if len(id) <= visible {
		return "***"
	}
	return id[:visible] + "***"
}
