package paymentplan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// DefaultLeadDays is how long before the wedding the final installment is due.
const DefaultLeadDays = 35

var ErrInvalidPolicy = errors.New("invalid deposit policy")

// DepositPolicy is either a flat amount capped by the total or a rate of the total.
type DepositPolicy struct {
	Flat *decimal.Decimal
	Rate *decimal.Decimal
}

func FlatDeposit(amount decimal.Decimal) DepositPolicy {
	return DepositPolicy{Flat: &amount}
}

func RateDeposit(rate decimal.Decimal) DepositPolicy {
	return DepositPolicy{Rate: &rate}
}

// Validate requires exactly one of Flat (> 0) or Rate (in (0,1]).
func (p DepositPolicy) Validate() error {
	switch {
	case p.Flat != nil && p.Rate != nil:
		return fmt.Errorf("%w: both flat and rate set", ErrInvalidPolicy)
	case p.Flat != nil:
		if !p.Flat.IsPositive() {
			return fmt.Errorf("%w: flat deposit must be positive", ErrInvalidPolicy)
		}
	case p.Rate != nil:
		if !p.Rate.IsPositive() || p.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: rate must be in (0,1]", ErrInvalidPolicy)
		}
	default:
		return fmt.Errorf("%w: flat or rate required", ErrInvalidPolicy)
	}
	return nil
}

// Describe renders the policy for contract copy, e.g. "25%" or "$750.00".
func (p DepositPolicy) Describe() string {
	if p.Flat != nil {
		return "$" + p.Flat.StringFixed(2)
	}
	if p.Rate != nil {
		return p.Rate.Shift(2).String() + "%"
	}
	return ""
}

// Policy is the compile-time plan configuration of one boutique module.
type Policy struct {
	Module   enums.BoutiqueModule
	Deposit  DepositPolicy
	LeadDays int
}

var (
	quarter     = decimal.RequireFromString("0.25")
	flatBooking = decimal.NewFromInt(750)
)

var policies = map[enums.BoutiqueModule]Policy{
	enums.ModuleFloral:      {Module: enums.ModuleFloral, Deposit: RateDeposit(quarter), LeadDays: DefaultLeadDays},
	enums.ModuleJamGroove:   {Module: enums.ModuleJamGroove, Deposit: FlatDeposit(flatBooking), LeadDays: DefaultLeadDays},
	enums.ModuleYumCatering: {Module: enums.ModuleYumCatering, Deposit: RateDeposit(quarter), LeadDays: DefaultLeadDays},
	enums.ModuleYumDessert:  {Module: enums.ModuleYumDessert, Deposit: RateDeposit(quarter), LeadDays: DefaultLeadDays},
	enums.ModuleVenue:       {Module: enums.ModuleVenue, Deposit: RateDeposit(quarter), LeadDays: DefaultLeadDays},
	enums.ModulePlanner:     {Module: enums.ModulePlanner, Deposit: FlatDeposit(flatBooking), LeadDays: DefaultLeadDays},
}

// PolicyFor returns the plan policy of module.
func PolicyFor(module enums.BoutiqueModule) (Policy, error) {
	policy, ok := policies[module]
	if !ok {
		return Policy{}, fmt.Errorf("no payment policy for module %q", module)
	}
	return policy, nil
}
