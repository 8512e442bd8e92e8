package enums

import "fmt"

// ContractStatus tracks a signed module contract through checkout.
type ContractStatus string

const (
	ContractStatusSigned ContractStatus = "signed"
	ContractStatusPaid   ContractStatus = "paid"
	ContractStatusVoid   ContractStatus = "void"
)

var validContractStatuses = []ContractStatus{
	ContractStatusSigned,
	ContractStatusPaid,
	ContractStatusVoid,
}

// String implements fmt.Stringer.
func (c ContractStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContractStatus.
func (c ContractStatus) IsValid() bool {
	for _, candidate := range validContractStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContractStatus converts raw input into a ContractStatus.
func ParseContractStatus(value string) (ContractStatus, error) {
	for _, candidate := range validContractStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract status %q", value)
}

// PlanType is the customer's full-vs-deposit choice.
type PlanType string

const (
	PlanTypeFull    PlanType = "full"
	PlanTypeDeposit PlanType = "deposit"
)

// PlanTypeFor maps the pay-in-full toggle to its PlanType.
func PlanTypeFor(payInFull bool) PlanType {
	if payInFull {
		return PlanTypeFull
	}
	return PlanTypeDeposit
}

// String implements fmt.Stringer.
func (p PlanType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanType.
func (p PlanType) IsValid() bool {
	return p == PlanTypeFull || p == PlanTypeDeposit
}
