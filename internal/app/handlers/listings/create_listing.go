package listings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainavailability "rentspace/internal/domain/availability"
	domainlistings "rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/money"
)

const CreateListingKey = "listings.create"

type CreateListingCommand struct {
	OwnerID           string `validate:"required"`
	Title             string `validate:"required,max=200"`
	Description       string `validate:"max=5000"`
	RentalType        string `validate:"omitempty,oneof=property equipment service package"`
	Location          string
	UnitPrice         string `validate:"required"`
	Currency          string `validate:"omitempty,len=3"`
	PricingUnit       string `validate:"omitempty,oneof=hour day week month year night"`
	InstantBook       bool
	AvailabilityModel string `validate:"omitempty,oneof=ALLOW_LIST DENY_LIST"`
	// SeedDays marks that many days from today as available on a deny-list listing.
	SeedDays int `validate:"gte=0,lte=730"`
}

func (c CreateListingCommand) Key() string { return CreateListingKey }

type CreateListingHandler struct {
	UoWFactory      uow.UoWFactory
	Encoder         outbox.EventEncoder
	DefaultCurrency string
	Clock           func() time.Time
	Logger          *slog.Logger
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	currency := strings.TrimSpace(cmd.Currency)
	if currency == "" {
		currency = h.DefaultCurrency
	}
	price, err := money.Parse(cmd.UnitPrice, currency)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidInput, "listings: invalid unit price", err)
	}

	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	now := support.Now(h.Clock)
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:                domainlistings.ListingID(uuid.NewString()),
		Owner:             domainlistings.OwnerID(strings.TrimSpace(cmd.OwnerID)),
		Title:             cmd.Title,
		Description:       cmd.Description,
		RentalType:        domainlistings.RentalType(cmd.RentalType),
		Location:          cmd.Location,
		UnitPrice:         price,
		PricingUnit:       domainlistings.PricingUnit(cmd.PricingUnit),
		InstantBook:       cmd.InstantBook,
		AvailabilityModel: domainlistings.AvailabilityModel(cmd.AvailabilityModel),
		Now:               now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	calendar := domainavailability.NewCalendar(listing.ID, listing.AvailabilityModel)
	if listing.AvailabilityModel == domainlistings.DenyList && cmd.SeedDays > 0 {
		if err := calendar.SeedDays(now, cmd.SeedDays, now); err != nil {
			return nil, err
		}
	}
	if err := unit.Availability().Save(ctx, calendar); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, unit.Outbox(), h.Encoder, listing, calendar); err != nil {
		return nil, err
	}
	if err := unit.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "listing created", "listing_id", listing.ID, "owner_id", listing.Owner, "model", listing.AvailabilityModel)
	}
	out := dto.MapListing(listing)
	return &out, nil
}

var _ commands.Handler[CreateListingCommand, *dto.Listing] = (*CreateListingHandler)(nil)
