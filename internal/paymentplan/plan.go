// Package paymentplan computes deposit and monthly installment schedules for
// boutique module contracts. Everything here is pure: callers pass "now".
package paymentplan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

type Input struct {
	Total       decimal.Decimal
	PayInFull   bool
	WeddingDate *time.Time
	Policy      Policy
	Now         time.Time
}

// Installment is one scheduled auto-charge.
type Installment struct {
	Sequence    int
	DueDate     time.Time
	AmountCents int64
}

func (i Installment) Amount() decimal.Decimal {
	return money.FromCents(i.AmountCents)
}

// Plan is recomputed on every quote; only a signed contract persists its fields.
type Plan struct {
	Module           enums.BoutiqueModule
	Total            decimal.Decimal
	PayInFull        bool
	Deposit          decimal.Decimal
	RemainingBalance decimal.Decimal
	LeadDays         int

	// Nil when no wedding date is known.
	FinalDueDate *time.Time

	InstallmentMonths    int
	PerInstallmentCents  int64
	LastInstallmentCents int64
	NextChargeDate       *time.Time
	Schedule             []Installment

	// Set instead of concrete dates when installments cannot be scheduled yet.
	FallbackMessage string
}

func (p Plan) PlanType() enums.PlanType {
	return enums.PlanTypeFor(p.PayInFull)
}

// DueToday is what checkout charges: the deposit, or the total when paying in full.
func (p Plan) DueToday() decimal.Decimal {
	return p.Deposit
}

func (p Plan) PerInstallment() decimal.Decimal {
	return money.FromCents(p.PerInstallmentCents)
}

func (p Plan) LastInstallment() decimal.Decimal {
	return money.FromCents(p.LastInstallmentCents)
}

func (p Plan) HasInstallments() bool {
	return p.InstallmentMonths > 0
}

// Fingerprint identifies the plan a signature was captured for. Any change to
// the plan type, amounts or schedule anchor produces a different value.
func (p Plan) Fingerprint() string {
	finalDue := "none"
	if p.FinalDueDate != nil {
		finalDue = caldate.FormatISO(*p.FinalDueDate)
	}
	raw := fmt.Sprintf("%s|%d|%s|%d|%d|%d|%d|%s",
		p.Module,
		money.ToCents(p.Total),
		p.PlanType(),
		money.ToCents(p.Deposit),
		p.InstallmentMonths,
		p.PerInstallmentCents,
		p.LastInstallmentCents,
		finalDue,
	)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

// Compute derives the plan for in. A negative or out of range total returns
// *InvalidAmountError;
// a missing wedding date is not an error and yields FallbackMessage instead of
// installment dates.
func Compute(in Input) (Plan, error) {
	if in.Total.IsNegative() || !money.InRange(in.Total) {
		return Plan{}, &InvalidAmountError{Total: in.Total}
	}
	if err := in.Policy.Deposit.Validate(); err != nil {
		return Plan{}, err
	}
	leadDays := in.Policy.LeadDays
	if leadDays <= 0 {
		leadDays = DefaultLeadDays
	}

	totalCents := money.ToCents(in.Total)
	plan := Plan{
		Module:    in.Policy.Module,
		Total:     money.FromCents(totalCents),
		PayInFull: in.PayInFull,
		LeadDays:  leadDays,
	}

	var depositCents int64
	if in.PayInFull {
		depositCents = totalCents
	} else {
		depositCents = depositFor(in.Policy.Deposit, plan.Total)
	}
	remainingCents := totalCents - depositCents
	if remainingCents < 0 {
		remainingCents = 0
	}
	plan.Deposit = money.FromCents(depositCents)
	plan.RemainingBalance = money.FromCents(remainingCents)

	if in.WeddingDate != nil {
		finalDue := caldate.AddDays(*in.WeddingDate, -leadDays)
		plan.FinalDueDate = &finalDue
	}

	if in.PayInFull || remainingCents == 0 {
		return plan, nil
	}

	if plan.FinalDueDate == nil {
		plan.FallbackMessage = FallbackMessage(leadDays)
		return plan, nil
	}

	months := caldate.InclusiveMonths(in.Now, *plan.FinalDueDate)
	base := remainingCents / int64(months)
	last := remainingCents - base*int64(months-1)

	next := caldate.FirstOfNextMonth(in.Now)
	plan.InstallmentMonths = months
	plan.PerInstallmentCents = base
	plan.LastInstallmentCents = last
	plan.NextChargeDate = &next
	plan.Schedule = schedule(next, *plan.FinalDueDate, in.Now, months, base, last)
	return plan, nil
}

func depositFor(policy DepositPolicy, total decimal.Decimal) int64 {
	if policy.Flat != nil {
		return money.ToCents(money.Min(*policy.Flat, total))
	}
	return money.ToCents(total.Mul(*policy.Rate))
}

// schedule lays installments on the first of each month starting at next.
// No due date may fall after the final due date, or before today when the
// final due date has already passed.
func schedule(next, finalDue, now time.Time, months int, base, last int64) []Installment {
	latest := caldate.Normalize(finalDue)
	if today := caldate.Normalize(now); latest.Before(today) {
		latest = today
	}
	out := make([]Installment, 0, months)
	for i := 0; i < months; i++ {
		due := caldate.AddMonths(next, i)
		if due.After(latest) {
			due = latest
		}
		amount := base
		if i == months-1 {
			amount = last
		}
		out = append(out, Installment{Sequence: i + 1, DueDate: due, AmountCents: amount})
	}
	return out
}

// FallbackMessage is the schedule wording used when the wedding date is unknown.
func FallbackMessage(leadDays int) string {
	return fmt.Sprintf("Installments run until %d days before your wedding date.", leadDays)
}
