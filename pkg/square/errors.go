package square

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
)

// Declines, CVV and address mismatches all land in this category.
const paymentMethodCategory = "PAYMENT_METHOD_ERROR"

// classify turns an SDK failure into an API error code. The error body's
// category wins over the HTTP status because Square reports some declines
// as plain 400s.
func classify(err error, op string) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
	}
	code := codeForStatus(apiErr.StatusCode)
	for _, detail := range squareErrors(apiErr) {
		switch {
		case detail.Code == sq.ErrorCodeIdempotencyKeyReused:
			code = pkgerrors.CodeIdempotency
		case detail.Category == sq.ErrorCategoryAuthenticationError:
			code = pkgerrors.CodeUnauthorized
		case string(detail.Category) == paymentMethodCategory:
			code = pkgerrors.CodePayment
		default:
			continue
		}
		break
	}
	return pkgerrors.Wrap(code, err, fmt.Sprintf("square %s failed", op))
}

// squareErrors decodes the {"errors": [...]} body the SDK keeps as the
// wrapped error text.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body); err != nil {
		return nil
	}
	out := body.Errors[:0]
	for _, detail := range body.Errors {
		if detail != nil {
			out = append(out, detail)
		}
	}
	return out
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusPaymentRequired:
		return pkgerrors.CodePayment
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	}
	if status >= 400 && status < 500 {
		return pkgerrors.CodeValidation
	}
	return pkgerrors.CodeDependency
}
