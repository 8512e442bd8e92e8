package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// GuestCountEvent carries the full registry state after a change so
// consumers never need to read it back.
type GuestCountEvent struct {
	AccountID   uuid.UUID          `json:"account_id"`
	Value       int                `json:"value"`
	Locked      bool               `json:"locked"`
	LockReasons []enums.LockReason `json:"lock_reasons"`
	Reason      enums.LockReason   `json:"reason,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// GuestCountChangeRequestedEvent asks the planning team to review a locked count change.
type GuestCountChangeRequestedEvent struct {
	RequestID      uuid.UUID          `json:"request_id"`
	AccountID      uuid.UUID          `json:"account_id"`
	CurrentValue   int                `json:"current_value"`
	RequestedValue int                `json:"requested_value"`
	LockReasons    []enums.LockReason `json:"lock_reasons"`
	Note           string             `json:"note,omitempty"`
}

// GuestCountChangeResolvedEvent is emitted when an admin approves or rejects a request.
type GuestCountChangeResolvedEvent struct {
	RequestID      uuid.UUID                 `json:"request_id"`
	AccountID      uuid.UUID                 `json:"account_id"`
	Status         enums.ChangeRequestStatus `json:"status"`
	RequestedValue int                       `json:"requested_value"`
	ReviewedBy     uuid.UUID                 `json:"reviewed_by"`
}

// GuestSessionClaimedEvent records the one-time merge of a guest session into an account.
type GuestSessionClaimedEvent struct {
	AccountID       uuid.UUID `json:"account_id"`
	GuestCountValue int       `json:"guest_count_value"`
	WeddingDate     string    `json:"wedding_date,omitempty"`
}

// ContractSignedEvent hands the signed plan snapshot to document generation.
type ContractSignedEvent struct {
	ContractID           uuid.UUID            `json:"contract_id"`
	AccountID            uuid.UUID            `json:"account_id"`
	Module               enums.BoutiqueModule `json:"module"`
	PlanType             enums.PlanType       `json:"plan_type"`
	TotalCents           int64                `json:"total_cents"`
	DepositCents         int64                `json:"deposit_cents"`
	RemainingCents       int64                `json:"remaining_cents"`
	FinalDueDate         string               `json:"final_due_date,omitempty"`
	InstallmentMonths    int                  `json:"installment_months"`
	PerInstallmentCents  int64                `json:"per_installment_cents"`
	LastInstallmentCents int64                `json:"last_installment_cents"`
	LineItems            []string             `json:"line_items"`
	SignatureRef         string               `json:"signature_ref"`
}

// ContractPaidEvent is emitted after the checkout charge succeeds.
type ContractPaidEvent struct {
	ContractID         uuid.UUID            `json:"contract_id"`
	AccountID          uuid.UUID            `json:"account_id"`
	Module             enums.BoutiqueModule `json:"module"`
	ChargeID           uuid.UUID            `json:"charge_id"`
	AmountCents        int64                `json:"amount_cents"`
	ProcessorPaymentID string               `json:"processor_payment_id"`
	LockReason         enums.LockReason     `json:"lock_reason,omitempty"`
}
