package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/internal/paymentplan"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}
	body := decodeError(t, w)
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "bad input" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}
	body := decodeError(t, w)
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
	if body.Error.Message != "internal server error" {
		t.Fatalf("internal message leaked: %q", body.Error.Message)
	}
}

func TestWriteErrorRoutesLockedEditsToChangeRequests(t *testing.T) {
	w := httptest.NewRecorder()
	locked := &guestcount.LockedError{Reasons: []enums.LockReason{enums.LockReasonVenue, enums.LockReasonCatering}}
	WriteError(context.Background(), nil, w, fmt.Errorf("set count: %w", locked))

	if got := w.Code; got != http.StatusLocked {
		t.Fatalf("expected status 423 but got %d", got)
	}
	body := decodeError(t, w)
	if body.Error.Code != string(pkgerrors.CodeLocked) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	details, ok := body.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", body.Error.Details)
	}
	if details["change_request_path"] != guestcount.ChangeRequestPath {
		t.Fatalf("unexpected change request path %v", details["change_request_path"])
	}
	reasons, ok := details["lock_reasons"].([]any)
	if !ok || len(reasons) != 2 || reasons[0] != "venue" || reasons[1] != "catering" {
		t.Fatalf("unexpected lock reasons %v", details["lock_reasons"])
	}
}

func TestWriteErrorMapsInvalidAmount(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, &paymentplan.InvalidAmountError{Total: decimal.NewFromInt(-5)})

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}
	body := decodeError(t, w)
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}
