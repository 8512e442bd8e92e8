package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

// PaymentCreateParams are the inputs for one card charge.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) request() *sq.CreatePaymentRequest {
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
	if currency == "" {
		currency = sq.Currency("USD")
	}
	amount := p.AmountCents
	autocomplete := true
	return &sq.CreatePaymentRequest{
		IdempotencyKey: p.IdempotencyKey,
		SourceID:       p.SourceID,
		LocationID:     optional(p.LocationID),
		AmountMoney:    &sq.Money{Amount: &amount, Currency: &currency},
		Note:           optional(p.Note),
		ReferenceID:    optional(p.ReferenceID),
		Autocomplete:   &autocomplete,
	}
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
