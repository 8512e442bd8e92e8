package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"1.004":   "1",
		"-1.005":  "-1.01",
		"2200":    "2200",
		"333.335": "333.34",
	}
	for in, want := range cases {
		got := Round2(decimal.RequireFromString(in))
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "Round2(%s) = %s, want %s", in, got, want)
	}
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(75000), ToCents(decimal.RequireFromString("750.00")))
	assert.Equal(t, int64(1), ToCents(decimal.RequireFromString("0.005")))
	assert.True(t, FromCents(123456).Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "1234.50", Format(FromCents(123450)))
}

func TestMinMax(t *testing.T) {
	a := decimal.NewFromInt(500)
	b := decimal.NewFromInt(750)
	assert.True(t, Min(a, b).Equal(a))
	assert.True(t, Max(a, b).Equal(b))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 1000.25 ")
	require.NoError(t, err)
	assert.Equal(t, "1000.25", Format(d))

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, ErrEmptyAmount)

	for _, raw := range []string{"NaN", "-Inf", "+infinity", "abc"} {
		_, err := ParseAmount(raw)
		assert.ErrorIs(t, err, ErrInvalidAmount, raw)
	}

	for _, raw := range []string{"100000000000000000", "-1000000000000.01", "1e30"} {
		_, err := ParseAmount(raw)
		assert.ErrorIs(t, err, ErrAmountTooLarge, raw)
	}
	top, err := ParseAmount("1000000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(100000000000000), ToCents(top))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(MaxAmount))
	assert.True(t, InRange(MaxAmount.Neg()))
	assert.False(t, InRange(MaxAmount.Add(decimal.New(1, -2))))
}
