package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// GuestCount is the per-account guest count latch. Locked mirrors
// len(LockReasons) > 0 and is stored for cheap filtering.
type GuestCount struct {
	AccountID   uuid.UUID      `gorm:"column:account_id;type:uuid;primaryKey"`
	Value       int            `gorm:"column:value;not null;default:0"`
	Locked      bool           `gorm:"column:locked;not null;default:false"`
	LockReasons pq.StringArray `gorm:"column:lock_reasons;type:text[];not null;default:'{}'"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// GuestCountChangeRequest asks an admin to change a locked guest count.
type GuestCountChangeRequest struct {
	ID             uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID      uuid.UUID                 `gorm:"column:account_id;type:uuid;not null;index"`
	CurrentValue   int                       `gorm:"column:current_value;not null"`
	RequestedValue int                       `gorm:"column:requested_value;not null"`
	Note           *string                   `gorm:"column:note"`
	Status         enums.ChangeRequestStatus `gorm:"column:status;type:change_request_status;not null;default:'pending'"`
	ReviewedBy     *uuid.UUID                `gorm:"column:reviewed_by;type:uuid"`
	ReviewNote     *string                   `gorm:"column:review_note"`
	ReviewedAt     *time.Time                `gorm:"column:reviewed_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
