// Package square charges tokenized cards through the Square Payments API.
package square

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, request *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

// Client charges cards at one Square location in one currency.
type Client struct {
	payments    paymentsAPI
	environment string
	locationID  string
	currency    string
	logg        *logger.Logger
}

// Payment is the slice of a Square payment the booking flow records.
type Payment struct {
	ID          string
	Status      string
	AmountCents int64
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	c := &Client{
		payments:    sdk.Payments,
		environment: env,
		locationID:  location,
		currency:    strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		logg:        logg,
	}
	logg.Info(logg.WithField(ctx, "environment", env), "square client initialized")
	return c, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	return c.environment
}

// CreatePayment charges params.SourceID and completes the payment in one step.
// Retrying with the same IdempotencyKey returns Square's original payment
// instead of charging twice, so the key is mandatory.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*Payment, error) {
	switch {
	case params.AmountCents <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	case strings.TrimSpace(params.SourceID) == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	case strings.TrimSpace(params.IdempotencyKey) == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment idempotency key is required")
	}
	if strings.TrimSpace(params.LocationID) == "" {
		params.LocationID = c.locationID
	}
	if strings.TrimSpace(params.Currency) == "" {
		params.Currency = c.currency
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"location_id":     params.LocationID,
		"reference_id":    params.ReferenceID,
		"amount_cents":    params.AmountCents,
		"idempotency_key": params.IdempotencyKey,
	})
	resp, err := c.payments.Create(ctx, params.request())
	if err != nil {
		mapped := classify(err, "create payment")
		c.logg.Error(ctx, "square payment failed", mapped)
		return nil, mapped
	}

	payment := resp.GetPayment()
	out := &Payment{AmountCents: params.AmountCents}
	if payment != nil {
		out.ID = deref(payment.GetID())
		out.Status = deref(payment.GetStatus())
	}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"payment_id": out.ID,
		"status":     out.Status,
	}), "square payment created")

	switch strings.ToUpper(out.Status) {
	case "FAILED", "CANCELED":
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment was not completed").
			WithDetails(map[string]any{"status": out.Status})
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
