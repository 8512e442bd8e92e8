package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the signed-in couple. Identity is owned by the external provider;
// ExternalSubject is the token subject it issued.
type Account struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalSubject      string     `gorm:"column:external_subject;not null;uniqueIndex"`
	Email                string     `gorm:"column:email;not null"`
	DisplayName          *string    `gorm:"column:display_name"`
	WeddingDate          *time.Time `gorm:"column:wedding_date;type:date"`
	ClaimedGuestSession  *string    `gorm:"column:claimed_guest_session"`
	GuestSessionMergedAt *time.Time `gorm:"column:guest_session_merged_at"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
