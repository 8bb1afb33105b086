package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/queries"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/money"
)

const (
	MyBookingsKey   = "bookings.mine"
	HostBookingsKey = "bookings.host"
)

type MyBookingsQuery struct {
	RenterID string `validate:"required"`
}

func (q MyBookingsQuery) Key() string { return MyBookingsKey }

type MyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MyBookingsHandler) Handle(ctx context.Context, q MyBookingsQuery) (dto.BookingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	bookings, err := unit.Booking().ListByRenter(ctx, strings.TrimSpace(q.RenterID))
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sortNewestFirst(bookings)

	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		hasReview, err := reviewExists(ctx, unit.Reviews(), b.ID)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		item := dto.MapBooking(b)
		item.CanReview = b.ReviewEligible(hasReview)
		items = append(items, item)
	}
	return dto.BookingCollection{Items: items}, nil
}

// HostBookingsQuery filters by Status, matched case-insensitively against
// PENDING, CONFIRMED, CANCELLED or ALL.
type HostBookingsQuery struct {
	OwnerID string `validate:"required"`
	Status  string `validate:"max=16"`
}

var ErrUnknownStatusFilter = errkind.New(errkind.InvalidInput, "booking: status filter must be PENDING, CONFIRMED, CANCELLED or ALL")

func parseStatusFilter(raw string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	switch status {
	case "", "ALL", string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed), string(domainbooking.StatusCancelled):
		return status, nil
	}
	return "", ErrUnknownStatusFilter
}

func (q HostBookingsQuery) Key() string { return HostBookingsKey }

// HostBookingsHandler lists bookings received on the owner's listings with
// the revenue from confirmed, paid bookings.
type HostBookingsHandler struct {
	UoWFactory      uow.UoWFactory
	DefaultCurrency string
	Logger          *slog.Logger
}

func (h *HostBookingsHandler) Handle(ctx context.Context, q HostBookingsQuery) (dto.HostBookingCollection, error) {
	status, err := parseStatusFilter(q.Status)
	if err != nil {
		return dto.HostBookingCollection{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostBookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	owned, err := unit.Listings().ListByOwner(ctx, domainlistings.OwnerID(strings.TrimSpace(q.OwnerID)))
	if err != nil {
		return dto.HostBookingCollection{}, err
	}

	var all []*domainbooking.Booking
	revenue := money.Money{Currency: h.DefaultCurrency}
	for _, listing := range owned {
		bookings, err := unit.Booking().ListByListing(ctx, listing.ID)
		if err != nil {
			return dto.HostBookingCollection{}, err
		}
		if revenue.Currency == "" {
			revenue.Currency = listing.UnitPrice.Currency
		}
		for _, b := range bookings {
			if b.Status == domainbooking.StatusConfirmed && b.PaymentStatus == domainbooking.PaymentPaid {
				sum, err := revenue.Add(b.Total)
				if err != nil {
					return dto.HostBookingCollection{}, errkind.Wrap(errkind.InvalidState, "booking: revenue mixes currencies", err)
				}
				revenue = sum
			}
			if status != "" && status != "ALL" && string(b.Status) != status {
				continue
			}
			all = append(all, b)
		}
	}
	sortNewestFirst(all)

	items := make([]dto.Booking, 0, len(all))
	for _, b := range all {
		items = append(items, dto.MapBooking(b))
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "host bookings listed", "owner_id", q.OwnerID, "count", len(items), "status", status)
	}
	return dto.HostBookingCollection{Items: items, Revenue: dto.MapMoney(revenue)}, nil
}

func reviewExists(ctx context.Context, repo domainreviews.Repository, id domainbooking.BookingID) (bool, error) {
	_, err := repo.ByBooking(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domainreviews.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func sortNewestFirst(items []*domainbooking.Booking) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var (
	_ queries.Handler[MyBookingsQuery, dto.BookingCollection]       = (*MyBookingsHandler)(nil)
	_ queries.Handler[HostBookingsQuery, dto.HostBookingCollection] = (*HostBookingsHandler)(nil)
)
