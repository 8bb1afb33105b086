package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentspace/internal/domain/shared/errkind"
)

func TestParse(t *testing.T) {
	m, err := Parse("99.90", "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(9990), m.Amount)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, "99.90 USD", m.String())

	_, err = Parse("1.005", "USD")
	assert.ErrorIs(t, err, ErrTooPrecise)

	_, err = Parse("abc", "USD")
	assert.Error(t, err)
}

func TestParse_RejectsAmountsBeyondMinorUnits(t *testing.T) {
	_, err := Parse("100000000000000000.00", "USD")
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, errkind.InvalidPrice, errkind.KindOf(err))

	_, err = Parse("-100000000000000000.00", "USD")
	assert.ErrorIs(t, err, ErrOutOfRange)

	m, err := Parse("92233720368547758.07", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), m.Amount)
}

func TestNew_RejectsBadCurrency(t *testing.T) {
	_, err := New(100, "US")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestArithmetic(t *testing.T) {
	a := Must(1000, "USD")
	b := Must(250, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount)

	_, err = a.Add(Must(1, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.True(t, decimal.RequireFromString("10").Equal(a.Decimal()))
}
