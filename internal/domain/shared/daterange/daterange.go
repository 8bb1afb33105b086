package daterange

import (
	"time"

	"rentspace/internal/domain/shared/errkind"
)

const (
	day           = 24 * time.Hour
	secondsPerDay = 24 * 60 * 60

	// MaxDays bounds a single range to one hundred years.
	MaxDays = 36525
)

var (
	ErrInvalidRange = errkind.New(errkind.InvalidRange, "daterange: end date must be after start date")
	ErrTooLong      = errkind.New(errkind.InvalidRange, "daterange: range exceeds 36525 days")
)

// DateRange represents a half-open interval of calendar days [Start, End).
// The end day is the checkout day and is not occupied.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New normalises both bounds to UTC midnight and validates start < end.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must is New for fixtures and tests.
func Must(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

// Day truncates t to its calendar date at UTC midnight, keeping the date as seen in t's location.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.End.IsZero() || dr.Start.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	if dr.Days() > MaxDays {
		return ErrTooLong
	}
	return nil
}

// Days is the number of occupied days (nights), counted on calendar dates so
// it does not saturate like time.Duration.
func (dr DateRange) Days() int {
	return int(unixDay(dr.End) - unixDay(dr.Start))
}

// unixDay is the day number of t's calendar date since 1970-01-01.
func unixDay(t time.Time) int64 {
	return Day(t).Unix() / secondsPerDay
}

// Overlaps is the half-open predicate: a.Start < b.End && b.Start < a.End.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

// OverlapsInclusive treats both end days as occupied, so a range ending on day X
// collides with one starting on day X.
func (dr DateRange) OverlapsInclusive(other DateRange) bool {
	return !dr.Start.After(other.End) && !other.Start.After(dr.End)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(dr.Start) && !other.End.After(dr.End)
}

// Widen extends the range by n days on both sides.
func (dr DateRange) Widen(n int) DateRange {
	shift := time.Duration(n) * day
	return DateRange{Start: dr.Start.Add(-shift), End: dr.End.Add(shift)}
}

// EachDay returns every occupied day in order.
func (dr DateRange) EachDay() []time.Time {
	n := dr.Days()
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for d := dr.Start; d.Before(dr.End); d = d.Add(day) {
		out = append(out, d)
	}
	return out
}

func (dr DateRange) String() string {
	return dr.Start.Format(time.DateOnly) + "/" + dr.End.Format(time.DateOnly)
}
