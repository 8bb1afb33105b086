package availability

import (
	"context"
	"sort"
	"time"

	"rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/events"
)

var (
	ErrUnavailable   = errkind.New(errkind.Unavailable, "availability: listing is not available for the requested dates")
	ErrModelMismatch = errkind.New(errkind.InvalidInput, "availability: operation does not match the listing availability model")
)

// Window is an owner-declared open period of an allow-list listing.
type Window struct {
	Range     daterange.DateRange
	CreatedAt time.Time
}

// DayFlag marks a single date of a deny-list listing as bookable or blocked.
type DayFlag struct {
	Date      time.Time
	Available bool
	UpdatedAt time.Time
}

type Calendar struct {
	ListingID listings.ListingID
	Model     listings.AvailabilityModel
	Windows   []Window
	Days      map[string]DayFlag
	Version   int64
	events.EventRecorder
}

type Repository interface {
	// Calendar returns the listing calendar, or an empty one when nothing was declared yet.
	Calendar(ctx context.Context, id listings.ListingID, model listings.AvailabilityModel) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id listings.ListingID, model listings.AvailabilityModel) *Calendar {
	return &Calendar{ListingID: id, Model: model, Days: map[string]DayFlag{}}
}

// DateKey is the map key of a day flag.
func DateKey(t time.Time) string {
	return daterange.Day(t).Format(time.DateOnly)
}

// AddWindow appends an open window. Windows are additive: overlapping ones are kept as declared.
func (c *Calendar) AddWindow(r daterange.DateRange, now time.Time) error {
	if c.Model != listings.AllowList {
		return ErrModelMismatch
	}
	if err := r.Validate(); err != nil {
		return err
	}
	c.Windows = append(c.Windows, Window{Range: r, CreatedAt: now.UTC()})
	c.Record(WindowAdded{ListingID: c.ListingID, Range: r, At: now.UTC()})
	return nil
}

// SetDay upserts the flag of one date.
func (c *Calendar) SetDay(date time.Time, available bool, now time.Time) error {
	if c.Model != listings.DenyList {
		return ErrModelMismatch
	}
	if date.IsZero() {
		return errkind.New(errkind.InvalidInput, "availability: date is required")
	}
	c.setDay(date, available, now)
	c.Record(DayFlagSet{ListingID: c.ListingID, Date: daterange.Day(date), Available: available, At: now.UTC()})
	return nil
}

// SetDays applies the same flag to every date of r.
func (c *Calendar) SetDays(r daterange.DateRange, available bool, now time.Time) error {
	if c.Model != listings.DenyList {
		return ErrModelMismatch
	}
	if err := r.Validate(); err != nil {
		return err
	}
	for _, d := range r.EachDay() {
		c.setDay(d, available, now)
	}
	c.Record(DaysFlagged{ListingID: c.ListingID, Range: r, Available: available, At: now.UTC()})
	return nil
}

// SeedDays marks the next n days starting at from as available.
// Newly created deny-list listings are seeded this way.
func (c *Calendar) SeedDays(from time.Time, n int, now time.Time) error {
	if n <= 0 {
		return nil
	}
	start := daterange.Day(from)
	return c.SetDays(daterange.DateRange{Start: start, End: start.AddDate(0, 0, n)}, true, now)
}

func (c *Calendar) setDay(date time.Time, available bool, now time.Time) {
	if c.Days == nil {
		c.Days = map[string]DayFlag{}
	}
	d := daterange.Day(date)
	c.Days[DateKey(d)] = DayFlag{Date: d, Available: available, UpdatedAt: now.UTC()}
}

// Policy returns the coverage rule for the calendar's model.
func (c *Calendar) Policy() Policy {
	if c.Model == listings.DenyList {
		return DenyListPolicy{Days: c.Days}
	}
	return AllowListPolicy{Windows: c.Windows}
}

func (c *Calendar) Covers(r daterange.DateRange) bool {
	return c.Policy().Covers(r)
}

// Ensure returns ErrUnavailable when r is not covered.
func (c *Calendar) Ensure(r daterange.DateRange) error {
	if !c.Covers(r) {
		return ErrUnavailable
	}
	return nil
}

// SortedDays returns the day flags ordered by date.
func (c *Calendar) SortedDays() []DayFlag {
	out := make([]DayFlag, 0, len(c.Days))
	for _, flag := range c.Days {
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
