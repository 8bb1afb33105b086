package availability

import (
	"time"

	"rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
)

type WindowAdded struct {
	ListingID listings.ListingID
	Range     daterange.DateRange
	At        time.Time
}

func (e WindowAdded) EventName() string     { return "availability.window_added" }
func (e WindowAdded) AggregateID() string   { return string(e.ListingID) }
func (e WindowAdded) OccurredAt() time.Time { return e.At }

type DayFlagSet struct {
	ListingID listings.ListingID
	Date      time.Time
	Available bool
	At        time.Time
}

func (e DayFlagSet) EventName() string     { return "availability.day_set" }
func (e DayFlagSet) AggregateID() string   { return string(e.ListingID) }
func (e DayFlagSet) OccurredAt() time.Time { return e.At }

type DaysFlagged struct {
	ListingID listings.ListingID
	Range     daterange.DateRange
	Available bool
	At        time.Time
}

func (e DaysFlagged) EventName() string     { return "availability.days_set" }
func (e DaysFlagged) AggregateID() string   { return string(e.ListingID) }
func (e DaysFlagged) OccurredAt() time.Time { return e.At }
