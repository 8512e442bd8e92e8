package checkout

import (
	"fmt"

	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
)

// ValidatePayable reports why contract cannot be charged, or nil when it can.
func ValidatePayable(contract *models.Contract) error {
	if contract == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	details := map[string]any{
		"contract_id": contract.ID,
		"status":      contract.Status,
	}
	switch contract.Status {
	case enums.ContractStatusSigned:
		if contract.TotalCents < 0 || contract.DepositCents < 0 || contract.DepositCents > contract.TotalCents {
			details["total_cents"] = contract.TotalCents
			details["deposit_cents"] = contract.DepositCents
			return pkgerrors.New(pkgerrors.CodeStateConflict, "contract amounts are inconsistent").WithDetails(details)
		}
		return nil
	case enums.ContractStatusPaid:
		return pkgerrors.New(pkgerrors.CodeConflict, "contract is already paid").WithDetails(details)
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("contract in status %s cannot be paid", contract.Status)).WithDetails(details)
	}
}

// chargeTypeFor returns the charge kind that settles what is due today.
func chargeTypeFor(contract *models.Contract) enums.ChargeType {
	if contract.PlanType == enums.PlanTypeFull {
		return enums.ChargeTypeFull
	}
	return enums.ChargeTypeDeposit
}
