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
	"rentspace/internal/app/policies"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	"rentspace/internal/domain/shared/errkind"
)

const CancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string `validate:"required"`
	ActorID   string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string { return CancelBookingKey }

func (c CancelBookingCommand) LockKey() string { return BookingLockKey(c.BookingID) }

// CancelBookingHandler cancels on behalf of the renter or the owner. Paid
// bookings are refunded first; if the refund fails nothing changes.
type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Metrics    policies.BookingMetrics
	Logger     *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	metrics := policies.MetricsOrNop(h.Metrics)
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if err := booking.CanCancel(cmd.ActorID); err != nil {
		metrics.CancellationProcessed("rejected")
		return nil, err
	}

	now := support.Now(h.Clock)
	refunded := false
	if booking.RequiresRefund() {
		if h.Gateway == nil {
			return nil, errkind.New(errkind.ExternalServiceFailure, "booking: payment gateway is not configured")
		}
		if err := h.Gateway.Refund(ctx, booking.PaymentRef); err != nil {
			metrics.CancellationProcessed("refund_failed")
			if h.Logger != nil {
				h.Logger.WarnContext(ctx, "refund failed, cancellation aborted", "booking_id", booking.ID, "payment_ref", booking.PaymentRef, "err", err)
			}
			return nil, errkind.Wrap(errkind.ExternalServiceFailure, "booking: refund failed, booking was not cancelled", err)
		}
		if h.Logger != nil {
			h.Logger.InfoContext(ctx, "payment refunded", "booking_id", booking.ID, "payment_ref", booking.PaymentRef)
		}
		if err := booking.MarkRefunded(now); err != nil {
			return nil, err
		}
		refunded = true
	}
	if err := booking.Cancel(cmd.ActorID, cmd.Reason, now); err != nil {
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
	metrics.CancellationProcessed("cancelled")

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled", "booking_id", booking.ID, "actor_id", cmd.ActorID, "refunded", refunded)
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[CancelBookingCommand, *dto.Booking] = (*CancelBookingHandler)(nil)
