package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// Contract is the signed snapshot of one module's payment plan. Money is in cents.
type Contract struct {
	ID                   uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID            uuid.UUID            `gorm:"column:account_id;type:uuid;not null;index"`
	Module               enums.BoutiqueModule `gorm:"column:module;type:boutique_module;not null"`
	Status               enums.ContractStatus `gorm:"column:status;type:contract_status;not null;default:'signed'"`
	PlanType             enums.PlanType       `gorm:"column:plan_type;type:plan_type;not null"`
	Currency             string               `gorm:"column:currency;not null;default:'USD'"`
	TotalCents           int64                `gorm:"column:total_cents;not null"`
	DepositCents         int64                `gorm:"column:deposit_cents;not null"`
	RemainingCents       int64                `gorm:"column:remaining_cents;not null"`
	LeadDays             int                  `gorm:"column:lead_days;not null"`
	FinalDueDate         *time.Time           `gorm:"column:final_due_date"`
	InstallmentMonths    int                  `gorm:"column:installment_months;not null;default:0"`
	PerInstallmentCents  int64                `gorm:"column:per_installment_cents;not null;default:0"`
	LastInstallmentCents int64                `gorm:"column:last_installment_cents;not null;default:0"`
	NextChargeDate       *time.Time           `gorm:"column:next_charge_date"`
	PlanFingerprint      string               `gorm:"column:plan_fingerprint;not null"`
	LineItems            pq.StringArray       `gorm:"column:line_items;type:text[];not null;default:'{}'"`
	SignatureRef         string               `gorm:"column:signature_ref;not null"`
	SignedAt             time.Time            `gorm:"column:signed_at;not null"`
	PaidAt               *time.Time           `gorm:"column:paid_at"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
