package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_RejectsEmptyAndReversedRanges(t *testing.T) {
	_, err := New(date(2024, 1, 4), date(2024, 1, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(date(2024, 1, 5), date(2024, 1, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, date(2024, 1, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNew_NormalisesToDays(t *testing.T) {
	dr, err := New(time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), dr.Start)
	assert.Equal(t, date(2024, 1, 4), dr.End)
	assert.Equal(t, 3, dr.Days())
	assert.Equal(t, "2024-01-01/2024-01-04", dr.String())
}

func TestOverlapSemantics(t *testing.T) {
	existing := Must(date(2024, 1, 1), date(2024, 1, 4))
	touching := Must(date(2024, 1, 4), date(2024, 1, 6))
	crossing := Must(date(2024, 1, 3), date(2024, 1, 5))
	apart := Must(date(2024, 1, 5), date(2024, 1, 7))

	assert.True(t, existing.Overlaps(crossing))
	assert.False(t, existing.Overlaps(touching))
	assert.False(t, existing.Overlaps(apart))

	assert.True(t, existing.OverlapsInclusive(crossing))
	assert.True(t, existing.OverlapsInclusive(touching))
	assert.False(t, existing.OverlapsInclusive(apart))
}

func TestContains(t *testing.T) {
	window := Must(date(2024, 1, 1), date(2024, 1, 10))

	assert.True(t, window.Contains(window))
	assert.True(t, window.Contains(Must(date(2024, 1, 2), date(2024, 1, 5))))
	assert.False(t, window.Contains(Must(date(2023, 12, 31), date(2024, 1, 5))))
	assert.False(t, window.Contains(Must(date(2024, 1, 8), date(2024, 1, 11))))
}

func TestWidenAndEachDay(t *testing.T) {
	dr := Must(date(2024, 2, 28), date(2024, 3, 2))
	assert.Equal(t, []time.Time{date(2024, 2, 28), date(2024, 2, 29), date(2024, 3, 1)}, dr.EachDay())

	wide := dr.Widen(1)
	assert.Equal(t, date(2024, 2, 27), wide.Start)
	assert.Equal(t, date(2024, 3, 3), wide.End)
}

func TestDays_CountsCalendarDatesBeyondDurationRange(t *testing.T) {
	dr := DateRange{Start: date(2026, 11, 1), End: date(2400, 1, 1)}

	assert.Equal(t, len(dr.EachDay()), dr.Days())
	assert.Equal(t, 136296, dr.Days())
	assert.ErrorIs(t, dr.Validate(), ErrTooLong)

	_, err := New(date(1960, 1, 1), date(1970, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3654, Must(date(1960, 1, 1), date(1970, 1, 2)).Days())

	longest := Must(date(2000, 1, 1), date(2000, 1, 1).AddDate(0, 0, MaxDays))
	assert.Equal(t, MaxDays, longest.Days())
}
