package listings

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
	domainlistings "rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/money"
)

const UpdateListingKey = "listings.update"

// UpdateListingCommand changes the price terms of a listing. Empty fields keep
// their current value.
type UpdateListingCommand struct {
	ListingID   string `validate:"required"`
	OwnerID     string `validate:"required"`
	UnitPrice   string
	PricingUnit string `validate:"omitempty,oneof=hour day week month year night"`
	InstantBook *bool
}

func (c UpdateListingCommand) Key() string { return UpdateListingKey }

func (c UpdateListingCommand) LockKey() string { return "listing:" + strings.TrimSpace(c.ListingID) }

// UpdateListingHandler lets the owner reprice a listing. Bookings already made
// keep the total they were created with.
type UpdateListingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	listing, err := unit.Listings().ByIDForUpdate(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(cmd.OwnerID) {
		return nil, domainlistings.ErrNotOwner
	}

	price := listing.UnitPrice
	if raw := strings.TrimSpace(cmd.UnitPrice); raw != "" {
		price, err = money.Parse(raw, listing.UnitPrice.Currency)
		if err != nil {
			return nil, errkind.Wrap(errkind.InvalidInput, "listings: invalid unit price", err)
		}
	}
	pricingUnit := listing.PricingUnit
	if cmd.PricingUnit != "" {
		pricingUnit = domainlistings.PricingUnit(cmd.PricingUnit)
	}
	instantBook := listing.InstantBook
	if cmd.InstantBook != nil {
		instantBook = *cmd.InstantBook
	}

	if err := listing.UpdatePricing(price, pricingUnit, instantBook, support.Now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, unit.Outbox(), h.Encoder, listing); err != nil {
		return nil, err
	}
	if err := unit.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "listing repriced", "listing_id", listing.ID, "unit_price", listing.UnitPrice.String(), "pricing_unit", listing.PricingUnit)
	}
	out := dto.MapListing(listing)
	return &out, nil
}

var _ commands.Handler[UpdateListingCommand, *dto.Listing] = (*UpdateListingHandler)(nil)
