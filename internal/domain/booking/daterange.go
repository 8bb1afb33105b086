package booking

import (
	"time"

	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
)

var ErrPastStartDate = errkind.New(errkind.PastStartDate, "booking: start date is in the past")

// ValidateStartDate rejects ranges starting before today (UTC). Today itself is allowed.
func ValidateStartDate(dr daterange.DateRange, now time.Time) error {
	today := daterange.Day(now.UTC())
	if daterange.Day(dr.Start).Before(today) {
		return ErrPastStartDate
	}
	return nil
}
