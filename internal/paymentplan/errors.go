package paymentplan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

// InvalidAmountError reports a contract total that cannot describe a plan:
// negative, or above money.MaxAmount.
type InvalidAmountError struct {
	Total decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	if e.Total.IsNegative() {
		return fmt.Sprintf("invalid plan total %s: must be zero or greater", e.Total.String())
	}
	return fmt.Sprintf("invalid plan total %s: must not exceed %s", e.Total.String(), money.Format(money.MaxAmount))
}
