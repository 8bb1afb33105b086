package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/middleware"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/policies"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	"rentspace/internal/domain/shared/errkind"
)

const PayBookingKey = "booking.pay"

type PayBookingCommand struct {
	BookingID       string `validate:"required"`
	PayerID         string `validate:"required"`
	PaymentToken    string `validate:"required"`
	IdempotencyKeyV string
}

func (c PayBookingCommand) Key() string { return PayBookingKey }

func (c PayBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c PayBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c PayBookingCommand) LockKey() string { return BookingLockKey(c.BookingID) }

func BookingLockKey(bookingID string) string {
	return "booking:" + strings.TrimSpace(bookingID)
}

// PayBookingHandler charges the booking total and marks the booking paid.
// A gateway failure leaves the booking untouched.
type PayBookingHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Metrics    policies.BookingMetrics
	Logger     *slog.Logger
}

func (h *PayBookingHandler) Handle(ctx context.Context, cmd PayBookingCommand) (*dto.Booking, error) {
	metrics := policies.MetricsOrNop(h.Metrics)
	if h.Gateway == nil {
		return nil, errkind.New(errkind.ExternalServiceFailure, "booking: payment gateway is not configured")
	}
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if err := booking.CheckPayable(cmd.PayerID); err != nil {
		metrics.PaymentProcessed("rejected")
		return nil, err
	}

	ref, err := h.Gateway.Charge(ctx, booking.Total, cmd.PaymentToken)
	if err != nil {
		metrics.PaymentProcessed("gateway_error")
		if h.Logger != nil {
			h.Logger.WarnContext(ctx, "payment charge failed", "booking_id", booking.ID, "err", err)
		}
		return nil, errkind.Wrap(errkind.ExternalServiceFailure, "booking: payment gateway charge failed", err)
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "payment charged", "booking_id", booking.ID, "payment_ref", ref)
	}

	if err := booking.MarkPaid(ref, support.Now(h.Clock)); err != nil {
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
	metrics.PaymentProcessed("paid")

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking paid", "booking_id", booking.ID, "payment_ref", ref, "amount", booking.Total.String())
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

var (
	_ commands.Handler[PayBookingCommand, *dto.Booking] = (*PayBookingHandler)(nil)
	_ middleware.IdempotentCommand                      = PayBookingCommand{}
	_ middleware.LockedCommand                          = PayBookingCommand{}
)
