package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/middleware"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/policies"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainpricing "rentspace/internal/domain/pricing"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
)

const RequestBookingKey = "booking.reserve"

// RequestBookingCommand reserves [StartDate, EndDate) of a listing for RenterID.
type RequestBookingCommand struct {
	ListingID       string    `validate:"required"`
	RenterID        string    `validate:"required"`
	StartDate       time.Time `validate:"required"`
	EndDate         time.Time `validate:"required"`
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return RequestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c RequestBookingCommand) LockKey() string { return ListingLockKey(c.ListingID) }

// ListingLockKey is the lock shared by every write that changes what a listing can accept.
func ListingLockKey(listingID string) string {
	return "listing:" + strings.TrimSpace(listingID)
}

// RequestBookingHandler is the reservation transaction: every check and the
// insert run in one unit of work with the listing held for update.
type RequestBookingHandler struct {
	UoWFactory  uow.UoWFactory
	Conflicts   domainbooking.ConflictDetector
	Encoder     outbox.EventEncoder
	Clock       func() time.Time
	IDGenerator func() string
	Metrics     policies.BookingMetrics
	Logger      *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (result *dto.Booking, err error) {
	started := time.Now()
	metrics := policies.MetricsOrNop(h.Metrics)
	defer func() {
		metrics.ObserveReservation(time.Since(started))
		if err != nil {
			metrics.BookingRejected(string(errkind.KindOf(err)))
			return
		}
		metrics.BookingReserved(result.Status)
	}()

	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	now := support.Now(h.Clock)

	listing, err := unit.Listings().ByIDForUpdate(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
	if err != nil {
		return nil, err
	}
	if listing.OwnedBy(cmd.RenterID) {
		return nil, domainbooking.ErrSelfBooking
	}

	dr, err := daterange.New(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	if err := domainbooking.ValidateStartDate(dr, now); err != nil {
		return nil, err
	}

	calendar, err := unit.Availability().Calendar(ctx, listing.ID, listing.AvailabilityModel)
	if err != nil {
		return nil, err
	}
	if err := calendar.Ensure(dr); err != nil {
		return nil, err
	}

	if err := h.Conflicts.Ensure(ctx, unit.Booking(), listing.ID, dr, ""); err != nil {
		return nil, err
	}

	quote, err := domainpricing.ForListing(listing, dr)
	if err != nil {
		return nil, err
	}
	if err := quote.RequirePositive(); err != nil {
		return nil, err
	}

	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:          domainbooking.BookingID(h.newID()),
		ListingID:   listing.ID,
		OwnerID:     listing.Owner,
		RenterID:    cmd.RenterID,
		Range:       dr,
		Total:       quote.Total,
		InstantBook: listing.InstantBook,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Booking().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, unit.Outbox(), h.Encoder, booking); err != nil {
		return nil, err
	}
	if err := unit.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking reserved",
			"booking_id", booking.ID,
			"listing_id", booking.ListingID,
			"renter_id", booking.RenterID,
			"range", booking.Range.String(),
			"status", booking.Status,
			"total", booking.Total.String(),
		)
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

func (h *RequestBookingHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

var (
	_ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                          = RequestBookingCommand{}
	_ middleware.LockedCommand                              = RequestBookingCommand{}
)
