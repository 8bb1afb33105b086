package availability

import (
	"context"
	"strings"
	"time"

	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/queries"
	"rentspace/internal/app/uow"
	domainlistings "rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
)

const GetCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	ListingID string `validate:"required"`
	From      time.Time
	To        time.Time
}

func (q GetCalendarQuery) Key() string { return GetCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
	if err != nil {
		return dto.Calendar{}, err
	}
	calendar, err := unit.Availability().Calendar(ctx, listing.ID, listing.AvailabilityModel)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(calendar, daterange.Day(q.From), daterange.Day(q.To)), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
