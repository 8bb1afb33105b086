package pricing

import (
	"github.com/shopspring/decimal"

	"rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/money"
)

var (
	ErrNegativePrice  = errkind.New(errkind.InvalidPrice, "pricing: unit price must be non-negative")
	ErrUnknownUnit    = errkind.New(errkind.InvalidInput, "pricing: unknown pricing unit")
	ErrCurrencyUnset  = errkind.New(errkind.InvalidInput, "pricing: currency must be defined")
	ErrNonPositiveSum = errkind.New(errkind.InvalidPrice, "pricing: total must be positive")
)

// divisionPrecision keeps enough digits that the final half-even rounding to
// cents sees exact ties such as 0.015.
const divisionPrecision = 24

// ratio is a unit factor num/den applied to a duration in days.
type ratio struct {
	num int64
	den int64
}

var factors = map[listings.PricingUnit]ratio{
	listings.PerHour:  {num: 24, den: 1},
	listings.PerDay:   {num: 1, den: 1},
	listings.PerNight: {num: 1, den: 1},
	listings.PerWeek:  {num: 1, den: 7},
	listings.PerMonth: {num: 1, den: 30},
	listings.PerYear:  {num: 1, den: 365},
}

// Quote is the priced result for one date range.
type Quote struct {
	Days        int
	Units       decimal.Decimal
	UnitPrice   money.Money
	PricingUnit listings.PricingUnit
	Total       money.Money
}

// Calculate prices r at unitPrice per unit. The total is
// unitPrice * days * factor rounded half-even to cents, where the factor is
// 24 for hours, 1 for days and nights, 1/7 for weeks, 1/30 for months and
// 1/365 for years.
func Calculate(unitPrice money.Money, unit listings.PricingUnit, r daterange.DateRange) (Quote, error) {
	if err := r.Validate(); err != nil {
		return Quote{}, err
	}
	if unitPrice.Currency == "" {
		return Quote{}, ErrCurrencyUnset
	}
	if unitPrice.Amount < 0 {
		return Quote{}, ErrNegativePrice
	}
	days := r.Days()
	f, ok := factors[unit]
	if !ok {
		return Quote{}, ErrUnknownUnit
	}
	units, _ := Units(unit, days)

	total := unitPrice.Decimal().
		Mul(decimal.NewFromInt(int64(days) * f.num)).
		DivRound(decimal.NewFromInt(f.den), divisionPrecision).
		RoundBank(2)
	amount, err := money.FromDecimal(total, unitPrice.Currency)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Days:        days,
		Units:       units,
		UnitPrice:   unitPrice,
		PricingUnit: unit,
		Total:       amount,
	}, nil
}

// Units converts a duration in days into the number of billable pricing units.
func Units(unit listings.PricingUnit, days int) (decimal.Decimal, error) {
	f, ok := factors[unit]
	if !ok {
		return decimal.Zero, ErrUnknownUnit
	}
	return decimal.NewFromInt(int64(days) * f.num).DivRound(decimal.NewFromInt(f.den), 4), nil
}

// ForListing prices r with the listing's current terms.
func ForListing(listing *listings.Listing, r daterange.DateRange) (Quote, error) {
	return Calculate(listing.UnitPrice, listing.PricingUnit, r)
}

// RequirePositive rejects quotes that would create a free booking.
func (q Quote) RequirePositive() error {
	if !q.Total.IsPositive() {
		return ErrNonPositiveSum
	}
	return nil
}
