package square

import (
	"context"
	"errors"
	"net/http"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

type fakePayments struct {
	requests []*sq.CreatePaymentRequest
	status   string
	err      error
}

func (f *fakePayments) Create(_ context.Context, req *sq.CreatePaymentRequest, _ ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	id := "sq-pay-" + req.IdempotencyKey
	status := f.status
	return &sq.CreatePaymentResponse{Payment: &sq.Payment{ID: &id, Status: &status}}, nil
}

func testClient(payments paymentsAPI) *Client {
	return &Client{
		payments:    payments,
		environment: sandboxEnv,
		locationID:  "LOC-1",
		currency:    "USD",
		logg:        logger.New(logger.Options{ServiceName: "square-test"}),
	}
}

func TestCreatePaymentFillsLocationAndCompletes(t *testing.T) {
	payments := &fakePayments{status: "COMPLETED"}
	c := testClient(payments)

	got, err := c.CreatePayment(context.Background(), PaymentCreateParams{
		AmountCents:    150000,
		SourceID:       "cnon:card-ok",
		IdempotencyKey: "contract-1",
		ReferenceID:    "contract-1",
		Note:           "  Venue deposit ",
	})
	require.NoError(t, err)
	assert.Equal(t, &Payment{ID: "sq-pay-contract-1", Status: "COMPLETED", AmountCents: 150000}, got)

	require.Len(t, payments.requests, 1)
	req := payments.requests[0]
	assert.Equal(t, "contract-1", req.IdempotencyKey)
	assert.Equal(t, "LOC-1", *req.LocationID)
	assert.Equal(t, int64(150000), *req.AmountMoney.Amount)
	assert.Equal(t, sq.Currency("USD"), *req.AmountMoney.Currency)
	assert.Equal(t, "Venue deposit", *req.Note)
	assert.True(t, *req.Autocomplete)
}

func TestCreatePaymentRejectsBadInput(t *testing.T) {
	payments := &fakePayments{status: "COMPLETED"}
	c := testClient(payments)

	cases := map[string]PaymentCreateParams{
		"zero amount":     {SourceID: "cnon:ok", IdempotencyKey: "k"},
		"missing source":  {AmountCents: 100, IdempotencyKey: "k"},
		"missing key":     {AmountCents: 100, SourceID: "cnon:ok"},
		"whitespace only": {AmountCents: 100, SourceID: "cnon:ok", IdempotencyKey: "   "},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.CreatePayment(context.Background(), params)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, payments.requests)
}

func TestCreatePaymentTreatsFailedStatusAsDecline(t *testing.T) {
	c := testClient(&fakePayments{status: "FAILED"})
	_, err := c.CreatePayment(context.Background(), PaymentCreateParams{AmountCents: 100, SourceID: "cnon:x", IdempotencyKey: "k"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayment))
}

func TestCreatePaymentClassifiesSDKErrors(t *testing.T) {
	payload := `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED"}]}`
	c := testClient(&fakePayments{err: sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))})
	_, err := c.CreatePayment(context.Background(), PaymentCreateParams{AmountCents: 100, SourceID: "cnon:x", IdempotencyKey: "k"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayment))

	c = testClient(&fakePayments{err: errors.New("dial tcp: connection refused")})
	_, err = c.CreatePayment(context.Background(), PaymentCreateParams{AmountCents: 100, SourceID: "cnon:x", IdempotencyKey: "k"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		payload string
		want    pkgerrors.Code
	}{
		{"authentication", http.StatusUnauthorized, `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`, pkgerrors.CodeUnauthorized},
		{"idempotency reuse", http.StatusBadRequest, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`, pkgerrors.CodeIdempotency},
		{"decline on 402", http.StatusPaymentRequired, `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CVV_FAILURE"}]}`, pkgerrors.CodePayment},
		{"unparseable body", http.StatusBadGateway, `<html>bad gateway</html>`, pkgerrors.CodeDependency},
		{"plain bad request", http.StatusBadRequest, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"BAD_REQUEST"}]}`, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(sqcore.NewAPIError(tc.status, errors.New(tc.payload)), "create payment")
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.want, typed.Code())
		})
	}
}

func TestSquareErrorsDecodesBody(t *testing.T) {
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(`{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`))
	got := squareErrors(apiErr)
	require.Len(t, got, 1)
	assert.Equal(t, sq.ErrorCodeBadRequest, got[0].GetCode())

	assert.Empty(t, squareErrors(sqcore.NewAPIError(http.StatusBadRequest, nil)))
}

func TestCodeForStatus(t *testing.T) {
	cases := map[int]pkgerrors.Code{
		http.StatusUnauthorized:        pkgerrors.CodeUnauthorized,
		http.StatusForbidden:           pkgerrors.CodeForbidden,
		http.StatusNotFound:            pkgerrors.CodeNotFound,
		http.StatusConflict:            pkgerrors.CodeConflict,
		http.StatusPaymentRequired:     pkgerrors.CodePayment,
		http.StatusTooManyRequests:     pkgerrors.CodeRateLimit,
		http.StatusBadRequest:          pkgerrors.CodeValidation,
		http.StatusUnprocessableEntity: pkgerrors.CodeStateConflict,
		http.StatusInternalServerError: pkgerrors.CodeDependency,
	}
	for status, want := range cases {
		assert.Equal(t, want, codeForStatus(status), "status %d", status)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "square-test"})
	ok := config.SquareConfig{AccessToken: "tok", Env: "Sandbox", LocationID: "LOC-1", Currency: "usd"}

	c, err := NewClient(context.Background(), ok, logg)
	require.NoError(t, err)
	assert.Equal(t, sandboxEnv, c.Environment())
	assert.Equal(t, "USD", c.currency)

	bad := ok
	bad.AccessToken = " "
	_, err = NewClient(context.Background(), bad, logg)
	assert.ErrorIs(t, err, errAccessTokenRequired)

	bad = ok
	bad.LocationID = ""
	_, err = NewClient(context.Background(), bad, logg)
	assert.ErrorIs(t, err, errLocationRequired)

	bad = ok
	bad.Env = "staging"
	_, err = NewClient(context.Background(), bad, logg)
	assert.ErrorIs(t, err, errInvalidSquareEnv)

	_, err = NewClient(context.Background(), ok, nil)
	assert.ErrorIs(t, err, errLoggerRequired)
}
