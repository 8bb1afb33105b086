package reviews

import (
	"context"
	"strings"

	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/queries"
	"rentspace/internal/app/uow"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
)

const (
	ListListingReviewsKey = "reviews.listing"
	defaultReviewsLimit   = 20
	maxReviewsLimit       = 100
)

type ListListingReviewsQuery struct {
	ListingID string `validate:"required"`
	Limit     int    `validate:"gte=0"`
	Offset    int    `validate:"gte=0"`
}

func (q ListListingReviewsQuery) Key() string { return ListListingReviewsKey }

type ListListingReviewsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListListingReviewsHandler) Handle(ctx context.Context, q ListListingReviewsQuery) (dto.ReviewCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listingID := domainlistings.ListingID(strings.TrimSpace(q.ListingID))
	if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
		return dto.ReviewCollection{}, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultReviewsLimit
	}
	if limit > maxReviewsLimit {
		limit = maxReviewsLimit
	}

	all, err := unit.Reviews().ListByListing(ctx, listingID, 0, 0)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	page, err := unit.Reviews().ListByListing(ctx, listingID, limit, q.Offset)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	items := make([]dto.Review, 0, len(page))
	for _, r := range page {
		items = append(items, dto.MapReview(r))
	}
	return dto.ReviewCollection{
		Items:         items,
		Total:         len(all),
		AverageRating: domainreviews.AverageRating(all),
	}, nil
}

var _ queries.Handler[ListListingReviewsQuery, dto.ReviewCollection] = (*ListListingReviewsHandler)(nil)
