package paymentplan

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

var testNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func mustPolicy(t *testing.T, module enums.BoutiqueModule) Policy {
	t.Helper()
	policy, err := PolicyFor(module)
	require.NoError(t, err)
	return policy
}

func TestComputeFullPayment(t *testing.T) {
	plan, err := Compute(Input{
		Total:       dec("2200.00"),
		PayInFull:   true,
		WeddingDate: datePtr(caldate.Date(2027, time.June, 12)),
		Policy:      mustPolicy(t, enums.ModuleFloral),
		Now:         testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "2200.00", money.Format(plan.Deposit))
	assert.Equal(t, "0.00", money.Format(plan.RemainingBalance))
	assert.Equal(t, 0, plan.InstallmentMonths)
	assert.Nil(t, plan.NextChargeDate)
	assert.Empty(t, plan.Schedule)
	assert.Empty(t, plan.FallbackMessage)
	assert.Equal(t, enums.PlanTypeFull, plan.PlanType())
}

func TestComputeFlatDepositCappedByTotal(t *testing.T) {
	plan, err := Compute(Input{
		Total:       dec("500.00"),
		WeddingDate: datePtr(caldate.Date(2027, time.June, 12)),
		Policy:      mustPolicy(t, enums.ModuleJamGroove),
		Now:         testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "500.00", money.Format(plan.Deposit))
	assert.Equal(t, "0.00", money.Format(plan.RemainingBalance))
	assert.Equal(t, 0, plan.InstallmentMonths, "nothing left to schedule")
	assert.Empty(t, plan.Schedule)
}

func TestComputeFlatDepositBelowTotal(t *testing.T) {
	plan, err := Compute(Input{
		Total:  dec("3000"),
		Policy: mustPolicy(t, enums.ModulePlanner),
		Now:    testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "750.00", money.Format(plan.Deposit))
	assert.Equal(t, "2250.00", money.Format(plan.RemainingBalance))
}

func TestComputePercentageDepositWithInstallments(t *testing.T) {
	wedding := caldate.AddDays(testNow, 100)
	plan, err := Compute(Input{
		Total:       dec("1000.00"),
		WeddingDate: &wedding,
		Policy:      mustPolicy(t, enums.ModuleYumCatering),
		Now:         testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "250.00", money.Format(plan.Deposit))
	assert.Equal(t, "750.00", money.Format(plan.RemainingBalance))
	require.NotNil(t, plan.FinalDueDate)
	assert.Equal(t, caldate.FormatISO(caldate.AddDays(wedding, -35)), caldate.FormatISO(*plan.FinalDueDate))

	// Oct 15 -> Dec 19 counts October, November and December.
	assert.Equal(t, 3, plan.InstallmentMonths)
	assert.Equal(t, int64(25000), plan.PerInstallmentCents)
	assert.Equal(t, int64(25000), plan.LastInstallmentCents)

	var sum int64
	for _, inst := range plan.Schedule {
		sum += inst.AmountCents
	}
	assert.Equal(t, money.ToCents(plan.RemainingBalance), sum)

	require.NotNil(t, plan.NextChargeDate)
	assert.Equal(t, "2026-11-01", caldate.FormatISO(*plan.NextChargeDate))
	assert.Equal(t, 12, plan.NextChargeDate.Hour())
}

func TestComputeNearTermFinalDueDate(t *testing.T) {
	// Final due date three days out.
	wedding := caldate.AddDays(testNow, 38)
	plan, err := Compute(Input{
		Total:       dec("1000.00"),
		WeddingDate: &wedding,
		Policy:      mustPolicy(t, enums.ModuleVenue),
		Now:         testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, plan.InstallmentMonths)
	assert.Equal(t, money.ToCents(plan.RemainingBalance), plan.LastInstallmentCents)
	require.Len(t, plan.Schedule, 1)
	assert.Equal(t, caldate.FormatISO(*plan.FinalDueDate), caldate.FormatISO(plan.Schedule[0].DueDate),
		"the single payment cannot be scheduled after the final due date")
}

func TestComputePastWeddingDateFloorsToOneInstallment(t *testing.T) {
	wedding := caldate.Date(2026, time.January, 10)
	plan, err := Compute(Input{
		Total:       dec("1200"),
		WeddingDate: &wedding,
		Policy:      mustPolicy(t, enums.ModuleFloral),
		Now:         testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, plan.InstallmentMonths)
	assert.Equal(t, int64(90000), plan.LastInstallmentCents)
	require.Len(t, plan.Schedule, 1)
	assert.Equal(t, caldate.FormatISO(testNow), caldate.FormatISO(plan.Schedule[0].DueDate), "overdue balance is due today")
}

func TestComputeRemainderGoesToLastInstallment(t *testing.T) {
	now := caldate.Date(2026, time.October, 1)
	wedding := caldate.Date(2027, time.February, 4) // final due Dec 31
	plan, err := Compute(Input{
		Total:       dec("1333.33"),
		WeddingDate: &wedding,
		Policy:      mustPolicy(t, enums.ModuleFloral),
		Now:         now,
	})
	require.NoError(t, err)

	// deposit round2(333.3325)=333.33, remaining 1000.00 over 3 months.
	assert.Equal(t, "333.33", money.Format(plan.Deposit))
	assert.Equal(t, 3, plan.InstallmentMonths)
	assert.Equal(t, int64(33333), plan.PerInstallmentCents)
	assert.Equal(t, int64(33334), plan.LastInstallmentCents)

	require.Len(t, plan.Schedule, 3)
	assert.Equal(t, "2026-11-01", caldate.FormatISO(plan.Schedule[0].DueDate))
	assert.Equal(t, "2026-12-01", caldate.FormatISO(plan.Schedule[1].DueDate))
	assert.Equal(t, "2026-12-31", caldate.FormatISO(plan.Schedule[2].DueDate))
	assert.Equal(t, 3, plan.Schedule[2].Sequence)
}

func TestComputeWithoutWeddingDate(t *testing.T) {
	plan, err := Compute(Input{
		Total:  dec("4000"),
		Policy: mustPolicy(t, enums.ModuleYumDessert),
		Now:    testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "1000.00", money.Format(plan.Deposit))
	assert.Equal(t, "3000.00", money.Format(plan.RemainingBalance))
	assert.Nil(t, plan.FinalDueDate)
	assert.Nil(t, plan.NextChargeDate)
	assert.Equal(t, 0, plan.InstallmentMonths)
	assert.Equal(t, "Installments run until 35 days before your wedding date.", plan.FallbackMessage)
}

func TestComputeRejectsNegativeTotal(t *testing.T) {
	_, err := Compute(Input{Total: dec("-0.01"), Policy: mustPolicy(t, enums.ModuleFloral), Now: testNow})
	var invalid *InvalidAmountError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Error(), "-0.01")
}

func TestComputeRejectsTotalAboveMaximum(t *testing.T) {
	for _, payInFull := range []bool{true, false} {
		plan, err := Compute(Input{
			Total:     dec("100000000000000000"),
			PayInFull: payInFull,
			Policy:    mustPolicy(t, enums.ModuleVenue),
			Now:       testNow,
		})
		var invalid *InvalidAmountError
		require.True(t, errors.As(err, &invalid), "pay in full %v", payInFull)
		assert.Contains(t, invalid.Error(), "must not exceed")
		assert.Zero(t, plan.Total.Sign())
	}

	plan, err := Compute(Input{Total: money.MaxAmount, PayInFull: true, Policy: mustPolicy(t, enums.ModuleVenue), Now: testNow})
	require.NoError(t, err)
	assert.True(t, plan.Deposit.Equal(money.MaxAmount))
	assert.True(t, plan.Deposit.IsPositive())
}

func TestComputeRejectsBrokenPolicy(t *testing.T) {
	_, err := Compute(Input{Total: dec("10"), Policy: Policy{Deposit: RateDeposit(dec("1.5"))}, Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Compute(Input{Total: dec("10"), Policy: Policy{}, Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestReconciliationInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	modules := enums.BoutiqueModules()
	for i := 0; i < 2000; i++ {
		cents := rng.Int63n(5_000_000)
		total := money.FromCents(cents)
		payInFull := rng.Intn(4) == 0
		var wedding *time.Time
		if rng.Intn(5) != 0 {
			w := caldate.AddDays(testNow, rng.Intn(900)-60)
			wedding = &w
		}
		policy := mustPolicy(t, modules[rng.Intn(len(modules))])

		plan, err := Compute(Input{Total: total, PayInFull: payInFull, WeddingDate: wedding, Policy: policy, Now: testNow})
		require.NoError(t, err)

		require.True(t, plan.Deposit.Add(plan.RemainingBalance).Equal(total),
			"deposit %s + remaining %s != total %s", plan.Deposit, plan.RemainingBalance, total)
		require.False(t, plan.RemainingBalance.IsNegative())

		if m := plan.InstallmentMonths; m > 0 {
			got := int64(m-1)*plan.PerInstallmentCents + plan.LastInstallmentCents
			require.Equal(t, money.ToCents(plan.RemainingBalance), got)
			require.Len(t, plan.Schedule, m)
			require.GreaterOrEqual(t, plan.LastInstallmentCents, plan.PerInstallmentCents)
		}
	}
}

func TestFingerprintBindsPlanChoice(t *testing.T) {
	wedding := caldate.Date(2027, time.June, 12)
	base := Input{Total: dec("1000"), WeddingDate: &wedding, Policy: mustPolicy(t, enums.ModuleVenue), Now: testNow}

	deposit, err := Compute(base)
	require.NoError(t, err)
	again, err := Compute(base)
	require.NoError(t, err)
	assert.Equal(t, deposit.Fingerprint(), again.Fingerprint())

	base.PayInFull = true
	full, err := Compute(base)
	require.NoError(t, err)
	assert.NotEqual(t, deposit.Fingerprint(), full.Fingerprint())

	base.PayInFull = false
	base.Total = dec("1000.01")
	changed, err := Compute(base)
	require.NoError(t, err)
	assert.NotEqual(t, deposit.Fingerprint(), changed.Fingerprint())
}

func TestPolicies(t *testing.T) {
	for _, module := range enums.BoutiqueModules() {
		policy, err := PolicyFor(module)
		require.NoError(t, err, module)
		assert.NoError(t, policy.Deposit.Validate())
		assert.Equal(t, DefaultLeadDays, policy.LeadDays)
	}
	assert.Equal(t, "$750.00", policies[enums.ModuleJamGroove].Deposit.Describe())
	assert.Equal(t, "25%", policies[enums.ModuleFloral].Deposit.Describe())

	_, err := PolicyFor("budget")
	assert.Error(t, err)
}
