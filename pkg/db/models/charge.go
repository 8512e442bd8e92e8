package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// Charge records one payment processor charge against a contract.
type Charge struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID         uuid.UUID          `gorm:"column:contract_id;type:uuid;not null;index"`
	AccountID          uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index"`
	Type               enums.ChargeType   `gorm:"column:type;type:charge_type;not null"`
	AmountCents        int64              `gorm:"column:amount_cents;not null"`
	Currency           string             `gorm:"column:currency;not null;default:'USD'"`
	Status             enums.ChargeStatus `gorm:"column:status;type:charge_status;not null;default:'pending'"`
	ProcessorPaymentID *string            `gorm:"column:processor_payment_id;unique"`
	IdempotencyKey     string             `gorm:"column:idempotency_key;not null;unique"`
	FailureReason      *string            `gorm:"column:failure_reason"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
