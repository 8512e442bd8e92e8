package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/internal/accounts"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/internal/paymentplan"
	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

type profileResponse struct {
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	WeddingDate string     `json:"wedding_date,omitempty"`
	Guest       bool       `json:"guest"`
}

func newProfileResponse(p accounts.Profile) profileResponse {
	return profileResponse{
		AccountID:   p.AccountID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		WeddingDate: p.WeddingDateISO(),
		Guest:       p.Guest,
	}
}

type installmentResponse struct {
	Sequence int    `json:"sequence"`
	DueDate  string `json:"due_date"`
	Amount   string `json:"amount"`
}

type planResponse struct {
	Module            string                `json:"module"`
	ModuleLabel       string                `json:"module_label"`
	PlanType          string                `json:"plan_type"`
	Total             string                `json:"total"`
	DueToday          string                `json:"due_today"`
	RemainingBalance  string                `json:"remaining_balance"`
	LeadDays          int                   `json:"lead_days"`
	FinalDueDate      string                `json:"final_due_date,omitempty"`
	InstallmentMonths int                   `json:"installment_months"`
	PerInstallment    string                `json:"per_installment,omitempty"`
	LastInstallment   string                `json:"last_installment,omitempty"`
	NextChargeDate    string                `json:"next_charge_date,omitempty"`
	Schedule          []installmentResponse `json:"schedule"`
	FallbackMessage   string                `json:"fallback_message,omitempty"`
	Fingerprint       string                `json:"fingerprint"`
}

func newPlanResponse(plan paymentplan.Plan) planResponse {
	resp := planResponse{
		Module:            plan.Module.String(),
		ModuleLabel:       plan.Module.Label(),
		PlanType:          plan.PlanType().String(),
		Total:             money.Format(plan.Total),
		DueToday:          money.Format(plan.DueToday()),
		RemainingBalance:  money.Format(plan.RemainingBalance),
		LeadDays:          plan.LeadDays,
		InstallmentMonths: plan.InstallmentMonths,
		FinalDueDate:      isoDate(plan.FinalDueDate),
		NextChargeDate:    isoDate(plan.NextChargeDate),
		Schedule:          make([]installmentResponse, 0, len(plan.Schedule)),
		FallbackMessage:   plan.FallbackMessage,
		Fingerprint:       plan.Fingerprint(),
	}
	if plan.HasInstallments() {
		resp.PerInstallment = money.Format(plan.PerInstallment())
		resp.LastInstallment = money.Format(plan.LastInstallment())
	}
	for _, inst := range plan.Schedule {
		resp.Schedule = append(resp.Schedule, installmentResponse{
			Sequence: inst.Sequence,
			DueDate:  caldate.FormatISO(inst.DueDate),
			Amount:   money.Format(inst.Amount()),
		})
	}
	return resp
}

type guestCountResponse struct {
	Value             int       `json:"value"`
	Max               int       `json:"max"`
	Locked            bool      `json:"locked"`
	LockReasons       []string  `json:"lock_reasons"`
	UpdatedAt         time.Time `json:"updated_at"`
	ChangeRequestPath string    `json:"change_request_path,omitempty"`
}

func newGuestCountResponse(state guestcount.State) guestCountResponse {
	reasons := make([]string, 0, len(state.LockReasons))
	for _, reason := range state.LockReasons {
		reasons = append(reasons, reason.String())
	}
	resp := guestCountResponse{
		Value:       state.Value,
		Max:         guestcount.MaxCount,
		Locked:      state.Locked,
		LockReasons: reasons,
		UpdatedAt:   state.UpdatedAt,
	}
	if state.Locked {
		resp.ChangeRequestPath = guestcount.ChangeRequestPath
	}
	return resp
}

type changeRequestResponse struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	CurrentValue   int        `json:"current_value"`
	RequestedValue int        `json:"requested_value"`
	Note           string     `json:"note,omitempty"`
	Status         string     `json:"status"`
	ReviewNote     string     `json:"review_note,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newChangeRequestResponse(req *models.GuestCountChangeRequest) changeRequestResponse {
	resp := changeRequestResponse{
		ID:             req.ID,
		AccountID:      req.AccountID,
		CurrentValue:   req.CurrentValue,
		RequestedValue: req.RequestedValue,
		Status:         req.Status.String(),
		ReviewedAt:     req.ReviewedAt,
		CreatedAt:      req.CreatedAt,
	}
	if req.Note != nil {
		resp.Note = *req.Note
	}
	if req.ReviewNote != nil {
		resp.ReviewNote = *req.ReviewNote
	}
	return resp
}

func newChangeRequestList(rows []models.GuestCountChangeRequest) []changeRequestResponse {
	out := make([]changeRequestResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newChangeRequestResponse(&rows[i]))
	}
	return out
}

type chargeResponse struct {
	ID                 uuid.UUID `json:"id"`
	Type               string    `json:"type"`
	Amount             string    `json:"amount"`
	Currency           string    `json:"currency"`
	Status             string    `json:"status"`
	ProcessorPaymentID string    `json:"processor_payment_id,omitempty"`
}

func newChargeResponse(charge *models.Charge) *chargeResponse {
	if charge == nil {
		return nil
	}
	resp := &chargeResponse{
		ID:       charge.ID,
		Type:     charge.Type.String(),
		Amount:   money.Format(money.FromCents(charge.AmountCents)),
		Currency: charge.Currency,
		Status:   charge.Status.String(),
	}
	if charge.ProcessorPaymentID != nil {
		resp.ProcessorPaymentID = *charge.ProcessorPaymentID
	}
	return resp
}

type dlqEntryResponse struct {
	ID            uuid.UUID `json:"id"`
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   uuid.UUID `json:"aggregate_id"`
	ErrorReason   string    `json:"error_reason"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	AttemptCount  int       `json:"attempt_count"`
	FailedAt      time.Time `json:"failed_at"`
}

func newDLQEntry(row models.OutboxDLQ) dlqEntryResponse {
	entry := dlqEntryResponse{
		ID:            row.ID,
		EventID:       row.EventID,
		EventType:     string(row.EventType),
		AggregateType: string(row.AggregateType),
		AggregateID:   row.AggregateID,
		ErrorReason:   string(row.ErrorReason),
		AttemptCount:  row.AttemptCount,
		FailedAt:      row.FailedAt,
	}
	if row.ErrorMessage != nil {
		entry.ErrorMessage = *row.ErrorMessage
	}
	return entry
}

func newDLQList(rows []models.OutboxDLQ) []dlqEntryResponse {
	out := make([]dlqEntryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newDLQEntry(row))
	}
	return out
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return caldate.FormatISO(*t)
}
