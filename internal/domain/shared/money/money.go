package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"rentspace/internal/domain/shared/errkind"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrTooPrecise       = errkind.New(errkind.InvalidPrice, "money: amount has more than two decimal places")
	ErrOutOfRange       = errkind.New(errkind.InvalidPrice, "money: amount does not fit in minor units")
)

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// Money keeps amounts in integer minor units (cents) to avoid floating point issues.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a major-unit decimal ("100.25") into Money.
// Values with sub-cent precision are rejected rather than silently rounded.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return Money{}, ErrTooPrecise
	}
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return Money{}, ErrOutOfRange
	}
	return New(cents.IntPart(), currency)
}

// Parse reads a major-unit string such as "99.90".
func Parse(raw, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, err
	}
	return FromDecimal(d, currency)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// String renders the amount with exactly two decimals, e.g. "300.00 USD".
func (m Money) String() string {
	return m.Decimal().StringFixed(2) + " " + m.Currency
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsPositive() bool {
	return m.Amount > 0
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
