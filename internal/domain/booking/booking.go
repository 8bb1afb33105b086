package booking

import (
	"context"
	"strings"
	"time"

	"rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/events"
	"rentspace/internal/domain/shared/money"
)

var (
	ErrBookingNotFound    = errkind.New(errkind.NotFound, "booking: not found")
	ErrInvalidState       = errkind.New(errkind.InvalidState, "booking: invalid state transition")
	ErrInvalidPrice       = errkind.New(errkind.InvalidPrice, "booking: total must be positive")
	ErrRenterRequired     = errkind.New(errkind.InvalidInput, "booking: renter id required")
	ErrSelfBooking        = errkind.New(errkind.SelfBooking, "booking: owners cannot book their own listing")
	ErrAlreadyPaid        = errkind.New(errkind.AlreadyPaid, "booking: booking is already paid")
	ErrNotPayable         = errkind.New(errkind.NotPayable, "booking: cancelled bookings cannot be paid")
	ErrNotRenter          = errkind.New(errkind.Forbidden, "booking: only the renter may perform this action")
	ErrOwnerPayment       = errkind.New(errkind.Forbidden, "booking: the listing owner cannot pay for a booking")
	ErrReviewNotEligible  = errkind.New(errkind.ReviewNotEligible, "booking: booking is not eligible for review")
	ErrNotParticipant     = errkind.New(errkind.Forbidden, "booking: caller is neither renter nor owner")
	ErrRefundNotNeeded    = errkind.New(errkind.InvalidState, "booking: booking has no payment to refund")
	ErrPaymentRefRequired = errkind.New(errkind.InvalidInput, "booking: payment reference required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Booking struct {
	ID            BookingID
	ListingID     listings.ListingID
	OwnerID       listings.OwnerID
	RenterID      string
	Range         daterange.DateRange
	Total         money.Money
	Status        Status
	PaymentStatus PaymentStatus
	PaymentRef    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// FindOverlapping returns the active bookings of the listing whose
	// half-open range overlaps probe, skipping excludeID when set.
	FindOverlapping(ctx context.Context, listingID listings.ListingID, probe daterange.DateRange, excludeID BookingID) ([]*Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]*Booking, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
}

type CreateParams struct {
	ID          BookingID
	ListingID   listings.ListingID
	OwnerID     listings.OwnerID
	RenterID    string
	Range       daterange.DateRange
	Total       money.Money
	InstantBook bool
	CreatedAt   time.Time
}

// NewBooking creates an unpaid booking. Instant-book listings skip the pending state.
func NewBooking(params CreateParams) (*Booking, error) {
	renter := strings.TrimSpace(params.RenterID)
	if renter == "" {
		return nil, ErrRenterRequired
	}
	if renter == string(params.OwnerID) {
		return nil, ErrSelfBooking
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if !params.Total.IsPositive() {
		return nil, ErrInvalidPrice
	}
	status := StatusPending
	if params.InstantBook {
		status = StatusConfirmed
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		ListingID:     params.ListingID,
		OwnerID:       params.OwnerID,
		RenterID:      renter,
		Range:         params.Range,
		Total:         params.Total,
		Status:        status,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		ListingID: b.ListingID,
		RenterID:  b.RenterID,
		Range:     b.Range,
		Total:     b.Total,
		Status:    b.Status,
		At:        now,
	})
	if status == StatusConfirmed {
		b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Total: b.Total, At: now})
	}
	return b, nil
}

// IsActive reports whether the booking still holds its dates.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Confirm is the owner's acceptance of a pending booking.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.touch(now)
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Total: b.Total, At: b.UpdatedAt})
	return nil
}

// CheckPayable validates the payment preconditions without changing state.
func (b *Booking) CheckPayable(payerID string) error {
	payer := strings.TrimSpace(payerID)
	if payer == string(b.OwnerID) {
		return ErrOwnerPayment
	}
	if payer != b.RenterID {
		return ErrNotRenter
	}
	if b.Status == StatusCancelled {
		return ErrNotPayable
	}
	if b.PaymentStatus != PaymentUnpaid {
		return ErrAlreadyPaid
	}
	return nil
}

// MarkPaid records a captured payment.
func (b *Booking) MarkPaid(paymentRef string, now time.Time) error {
	if b.Status == StatusCancelled {
		return ErrNotPayable
	}
	if b.PaymentStatus != PaymentUnpaid {
		return ErrAlreadyPaid
	}
	if strings.TrimSpace(paymentRef) == "" {
		return ErrPaymentRefRequired
	}
	b.PaymentStatus = PaymentPaid
	b.PaymentRef = paymentRef
	b.touch(now)
	b.Record(BookingPaid{BookingID: b.ID, PaymentRef: paymentRef, Amount: b.Total, At: b.UpdatedAt})
	return nil
}

// CanCancel reports whether actorID may cancel the booking in its current state.
func (b *Booking) CanCancel(actorID string) error {
	actor := strings.TrimSpace(actorID)
	if actor != b.RenterID && actor != string(b.OwnerID) {
		return ErrNotParticipant
	}
	if !b.IsActive() {
		return ErrInvalidState
	}
	return nil
}

// RequiresRefund reports whether cancelling must first return the payment.
func (b *Booking) RequiresRefund() bool {
	return b.PaymentStatus == PaymentPaid
}

// Cancel moves an active booking to the terminal cancelled state. A paid
// booking must be refunded with MarkRefunded before it can be cancelled.
func (b *Booking) Cancel(actorID, reason string, now time.Time) error {
	if err := b.CanCancel(actorID); err != nil {
		return err
	}
	if b.RequiresRefund() {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.touch(now)
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, ActorID: strings.TrimSpace(actorID), Reason: reason, At: b.UpdatedAt})
	return nil
}

// MarkRefunded records a refund of a paid booking.
func (b *Booking) MarkRefunded(now time.Time) error {
	if b.PaymentStatus != PaymentPaid {
		return ErrRefundNotNeeded
	}
	b.PaymentStatus = PaymentRefunded
	b.touch(now)
	b.Record(BookingRefunded{BookingID: b.ID, PaymentRef: b.PaymentRef, Amount: b.Total, At: b.UpdatedAt})
	return nil
}

// ReviewEligible is true only for confirmed, paid bookings without a review.
func (b *Booking) ReviewEligible(hasReview bool) bool {
	return b.Status == StatusConfirmed && b.PaymentStatus == PaymentPaid && !hasReview
}

// EnsureReviewable checks that authorID is the renter and the booking is eligible.
func (b *Booking) EnsureReviewable(authorID string, hasReview bool) error {
	if strings.TrimSpace(authorID) != b.RenterID {
		return ErrNotRenter
	}
	if !b.ReviewEligible(hasReview) {
		return ErrReviewNotEligible
	}
	return nil
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}
