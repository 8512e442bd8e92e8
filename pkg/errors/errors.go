// Package errors carries the typed errors handlers turn into HTTP responses.
// A Code fixes the status, the public message and whether details may leave
// the process.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeLocked        Code = "GUEST_COUNT_LOCKED"
	CodePayment       Code = "PAYMENT_DECLINED"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final     = false
	retryable = true
	redacted  = false
	detailed  = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, final, "validation failed", detailed},
	CodeUnauthorized:  {http.StatusUnauthorized, final, "authentication required", redacted},
	CodeForbidden:     {http.StatusForbidden, final, "access denied", redacted},
	CodeNotFound:      {http.StatusNotFound, final, "resource not found", redacted},
	CodeConflict:      {http.StatusConflict, final, "conflict detected", redacted},
	CodeStateConflict: {http.StatusUnprocessableEntity, final, "state transition disallowed", detailed},
	CodeLocked:        {http.StatusLocked, final, "guest count is locked", detailed},
	CodePayment:       {http.StatusPaymentRequired, final, "payment was not accepted", detailed},
	CodeIdempotency:   {http.StatusConflict, final, "idempotency key reused", detailed},
	CodeRateLimit:     {http.StatusTooManyRequests, final, "rate limit exceeded", redacted},
	CodeInternal:      {http.StatusInternalServerError, retryable, "internal server error", redacted},
	CodeDependency:    {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code is CodeInternal on a nil receiver.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the payload rendered to clients when the code allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
