package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wedanddone/wedanddone-backend/api/responses"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	pkgredis "github.com/wedanddone/wedanddone-backend/pkg/redis"
)

// IdempotencyKeyHeader is required on every guarded route.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayHeader marks a response served from a stored record.
const ReplayHeader = "Idempotent-Replay"

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// ChargeIdempotencyTTL keeps checkout records for a week so a client
	// retrying a card charge days later still gets the original answer.
	ChargeIdempotencyTTL = 7 * 24 * time.Hour
)

// IdempotencyStore is the slice of Redis the guard needs.
type IdempotencyStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Idempotency guards one route. The first request with a given key reserves
// it, runs the handler and stores the response for ttl; later requests with
// the same key and body get the stored response back. A concurrent duplicate
// is refused while the first is still running, and server errors release the
// key so the caller can retry.
func Idempotency(store IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprint(body)
			key := store.IdempotencyKey(scopeFor(r), clientKey)

			reserved, err := store.SetNX(ctx, key, pendingRecord(fingerprint).encode(), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(ctx, store, key, fingerprint, w, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			if err := store.Set(ctx, key, capture.record(fingerprint).encode(), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replay(ctx context.Context, store IdempotencyStore, key, fingerprint string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		// Released between our SETNX and GET; the first attempt failed.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key failed, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	stored, err := decodeRecord(raw)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		w.Header().Set(ReplayHeader, "true")
		stored.writeTo(w)
	}
}

// scopeFor keeps keys from different callers and routes apart.
func scopeFor(r *http.Request) string {
	caller := "anonymous"
	if owner, ok := OwnerFromContext(r.Context()); ok {
		caller = owner.String()
	}
	return caller + "|" + r.Method + "|" + r.URL.Path
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
