package availability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainavailability "rentspace/internal/domain/availability"
	domainlistings "rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
)

const (
	AddWindowKey = "availability.window.add"
	SetDayKey    = "availability.day.set"
)

// AddWindowCommand opens [StartDate, EndDate) on an allow-list listing.
type AddWindowCommand struct {
	ListingID string    `validate:"required"`
	OwnerID   string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required"`
}

func (c AddWindowCommand) Key() string { return AddWindowKey }

func (c AddWindowCommand) LockKey() string { return "listing:" + strings.TrimSpace(c.ListingID) }

// SetDayCommand flags one date of a deny-list listing.
type SetDayCommand struct {
	ListingID string    `validate:"required"`
	OwnerID   string    `validate:"required"`
	Date      time.Time `validate:"required"`
	Available bool
}

func (c SetDayCommand) Key() string { return SetDayKey }

func (c SetDayCommand) LockKey() string { return "listing:" + strings.TrimSpace(c.ListingID) }

type ManageCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *ManageCalendarHandler) AddWindow(ctx context.Context, cmd AddWindowCommand) (dto.Calendar, error) {
	return h.mutate(ctx, cmd.ListingID, cmd.OwnerID, func(cal *domainavailability.Calendar, now time.Time) error {
		dr, err := daterange.New(cmd.StartDate, cmd.EndDate)
		if err != nil {
			return err
		}
		return cal.AddWindow(dr, now)
	})
}

func (h *ManageCalendarHandler) SetDay(ctx context.Context, cmd SetDayCommand) (dto.Calendar, error) {
	return h.mutate(ctx, cmd.ListingID, cmd.OwnerID, func(cal *domainavailability.Calendar, now time.Time) error {
		return cal.SetDay(cmd.Date, cmd.Available, now)
	})
}

func (h *ManageCalendarHandler) mutate(ctx context.Context, listingID, ownerID string, change func(*domainavailability.Calendar, time.Time) error) (dto.Calendar, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	defer unit.Close()

	listing, err := unit.Listings().ByIDForUpdate(ctx, domainlistings.ListingID(strings.TrimSpace(listingID)))
	if err != nil {
		return dto.Calendar{}, err
	}
	if !listing.OwnedBy(ownerID) {
		return dto.Calendar{}, domainlistings.ErrNotOwner
	}
	calendar, err := unit.Availability().Calendar(ctx, listing.ID, listing.AvailabilityModel)
	if err != nil {
		return dto.Calendar{}, err
	}
	if err := change(calendar, support.Now(h.Clock)); err != nil {
		return dto.Calendar{}, err
	}
	if err := unit.Availability().Save(ctx, calendar); err != nil {
		return dto.Calendar{}, err
	}
	if err := outbox.RecordFrom(ctx, unit.Outbox(), h.Encoder, calendar); err != nil {
		return dto.Calendar{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.Calendar{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "availability updated", "listing_id", listing.ID, "model", listing.AvailabilityModel)
	}
	return dto.MapCalendar(calendar, time.Time{}, time.Time{}), nil
}

