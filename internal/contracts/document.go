package contracts

import (
	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/internal/paymentplan"
	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

// Document is the snapshot handed to contract and receipt generation.
type Document struct {
	ContractID        uuid.UUID `json:"contract_id"`
	Module            string    `json:"module"`
	ModuleLabel       string    `json:"module_label"`
	Status            string    `json:"status"`
	PlanType          string    `json:"plan_type"`
	Currency          string    `json:"currency"`
	Total             string    `json:"total"`
	DueToday          string    `json:"due_today"`
	RemainingBalance  string    `json:"remaining_balance"`
	FinalDueDate      string    `json:"final_due_date,omitempty"`
	InstallmentMonths int       `json:"installment_months"`
	PerInstallment    string    `json:"per_installment,omitempty"`
	LastInstallment   string    `json:"last_installment,omitempty"`
	NextChargeDate    string    `json:"next_charge_date,omitempty"`
	ScheduleNote      string    `json:"schedule_note,omitempty"`
	LineItems         []string  `json:"line_items"`
	SignatureRef      string    `json:"signature_ref"`
	SignedAt          string    `json:"signed_at"`
}

// DocumentFor renders a stored contract into display strings.
func DocumentFor(c *models.Contract) Document {
	doc := Document{
		ContractID:        c.ID,
		Module:            c.Module.String(),
		ModuleLabel:       c.Module.Label(),
		Status:            c.Status.String(),
		PlanType:          c.PlanType.String(),
		Currency:          c.Currency,
		Total:             money.Format(money.FromCents(c.TotalCents)),
		DueToday:          money.Format(money.FromCents(c.DepositCents)),
		RemainingBalance:  money.Format(money.FromCents(c.RemainingCents)),
		InstallmentMonths: c.InstallmentMonths,
		LineItems:         append([]string{}, c.LineItems...),
		SignatureRef:      c.SignatureRef,
		SignedAt:          c.SignedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if c.FinalDueDate != nil {
		doc.FinalDueDate = caldate.FormatISO(caldate.Normalize(*c.FinalDueDate))
	}
	if c.NextChargeDate != nil && c.InstallmentMonths > 0 {
		doc.NextChargeDate = caldate.FormatISO(caldate.Normalize(*c.NextChargeDate))
	}
	if c.InstallmentMonths > 0 {
		doc.PerInstallment = money.Format(money.FromCents(c.PerInstallmentCents))
		doc.LastInstallment = money.Format(money.FromCents(c.LastInstallmentCents))
	}
	if c.RemainingCents > 0 && c.FinalDueDate == nil {
		doc.ScheduleNote = paymentplan.FallbackMessage(c.LeadDays)
	}
	return doc
}
