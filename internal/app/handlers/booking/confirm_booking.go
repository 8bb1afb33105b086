package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
)

const ConfirmBookingKey = "booking.confirm"

type ConfirmBookingCommand struct {
	BookingID string `validate:"required"`
	OwnerID   string `validate:"required"`
}

func (c ConfirmBookingCommand) Key() string { return ConfirmBookingKey }

func (c ConfirmBookingCommand) LockKey() string { return BookingLockKey(c.BookingID) }

// ConfirmBookingHandler lets the listing owner accept a pending booking.
type ConfirmBookingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.Booking, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if string(booking.OwnerID) != strings.TrimSpace(cmd.OwnerID) {
		return nil, domainlistings.ErrNotOwner
	}
	if err := booking.Confirm(support.Now(h.Clock)); err != nil {
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
		h.Logger.InfoContext(ctx, "booking confirmed", "booking_id", booking.ID, "owner_id", cmd.OwnerID)
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[ConfirmBookingCommand, *dto.Booking] = (*ConfirmBookingHandler)(nil)
