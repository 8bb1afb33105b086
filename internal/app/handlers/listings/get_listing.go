package listings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/queries"
	"rentspace/internal/app/uow"
	domainlistings "rentspace/internal/domain/listings"
	domainpricing "rentspace/internal/domain/pricing"
	"rentspace/internal/domain/shared/daterange"
)

const (
	GetListingKey   = "listings.get"
	QuoteListingKey = "listings.quote"
)

type GetListingQuery struct {
	ListingID string `validate:"required"`
}

func (q GetListingQuery) Key() string { return GetListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Listing{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
	if err != nil {
		return dto.Listing{}, err
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "listing loaded", "listing_id", listing.ID)
	}
	return dto.MapListing(listing), nil
}

// QuoteListingQuery prices a stay without reserving it.
type QuoteListingQuery struct {
	ListingID string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required"`
}

func (q QuoteListingQuery) Key() string { return QuoteListingKey }

type QuoteListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QuoteListingHandler) Handle(ctx context.Context, q QuoteListingQuery) (dto.Quote, error) {
	dr, err := daterange.New(q.StartDate, q.EndDate)
	if err != nil {
		return dto.Quote{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := domainpricing.ForListing(listing, dr)
	if err != nil {
		return dto.Quote{}, err
	}
	calendar, err := unit.Availability().Calendar(ctx, listing.ID, listing.AvailabilityModel)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(listing.ID, dr.Start, dr.End, quote, calendar.Covers(dr)), nil
}

var (
	_ queries.Handler[GetListingQuery, dto.Listing]   = (*GetListingHandler)(nil)
	_ queries.Handler[QuoteListingQuery, dto.Quote] = (*QuoteListingHandler)(nil)
)
