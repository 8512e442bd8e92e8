package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
)

// Profile is what the wizards need to know about the couple, signed in or not.
type Profile struct {
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	WeddingDate *time.Time `json:"-"`
	Guest       bool       `json:"guest"`
}

// WeddingDateISO renders the wedding date as YYYY-MM-DD, or "" when unknown.
func (p Profile) WeddingDateISO() string {
	if p.WeddingDate == nil {
		return ""
	}
	return caldate.FormatISO(*p.WeddingDate)
}

// guestProfile is the transient profile document kept in Redis for guests.
type guestProfile struct {
	WeddingDate string `json:"wedding_date,omitempty"`
}

func profileFromAccount(account *models.Account) Profile {
	id := account.ID
	profile := Profile{
		AccountID:   &id,
		Email:       account.Email,
		WeddingDate: normalizeDate(account.WeddingDate),
	}
	if account.DisplayName != nil {
		profile.DisplayName = *account.DisplayName
	}
	return profile
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	normalized := caldate.Normalize(*t)
	return &normalized
}
