package dto

import (
	"time"

	"rentspace/internal/domain/availability"
)

type CalendarWindow struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type CalendarDay struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

type Calendar struct {
	ListingID string           `json:"listing_id"`
	Model     string           `json:"model"`
	Windows   []CalendarWindow `json:"windows,omitempty"`
	Days      []CalendarDay    `json:"days,omitempty"`
}

// MapCalendar renders the calendar, keeping only day flags inside [from, to)
// when both bounds are set.
func MapCalendar(cal *availability.Calendar, from, to time.Time) Calendar {
	if cal == nil {
		return Calendar{}
	}
	out := Calendar{ListingID: string(cal.ListingID), Model: string(cal.Model)}
	for _, w := range cal.Windows {
		out.Windows = append(out.Windows, CalendarWindow{
			StartDate: w.Range.Start.Format(time.DateOnly),
			EndDate:   w.Range.End.Format(time.DateOnly),
		})
	}
	bounded := !from.IsZero() && !to.IsZero()
	for _, d := range cal.SortedDays() {
		if bounded && (d.Date.Before(from) || !d.Date.Before(to)) {
			continue
		}
		out.Days = append(out.Days, CalendarDay{Date: d.Date.Format(time.DateOnly), Available: d.Available})
	}
	return out
}
