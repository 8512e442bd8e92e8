package enums

import (
	"fmt"
	"strings"
)

// ChargeType says what portion of a contract a charge settles.
type ChargeType string

const (
	ChargeTypeDeposit     ChargeType = "deposit"
	ChargeTypeFull        ChargeType = "full"
	ChargeTypeInstallment ChargeType = "installment"
)

var validChargeTypes = []ChargeType{
	ChargeTypeDeposit,
	ChargeTypeFull,
	ChargeTypeInstallment,
}

// String implements fmt.Stringer.
func (c ChargeType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ChargeType) IsValid() bool {
	for _, candidate := range validChargeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChargeType converts raw input into a ChargeType.
func ParseChargeType(value string) (ChargeType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validChargeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid charge type %q", value)
}

// ChargeTypeFor returns the type of the charge collected at checkout.
func ChargeTypeFor(plan PlanType) ChargeType {
	if plan == PlanTypeFull {
		return ChargeTypeFull
	}
	return ChargeTypeDeposit
}
