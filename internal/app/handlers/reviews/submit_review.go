package reviews

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	"rentspace/internal/app/handlers/support"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
)

const SubmitReviewKey = "reviews.submit"

type SubmitReviewCommand struct {
	BookingID string `validate:"required"`
	AuthorID  string `validate:"required"`
	Rating    int    `validate:"min=1,max=5"`
	Comment   string `validate:"max=2000"`
}

func (c SubmitReviewCommand) Key() string { return SubmitReviewKey }

func (c SubmitReviewCommand) LockKey() string { return "booking:" + strings.TrimSpace(c.BookingID) }

// SubmitReviewHandler attaches the single review of a confirmed, paid booking
// and refreshes the listing rating.
type SubmitReviewHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (dto.Review, error) {
	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Review{}, err
	}
	defer unit.Close()

	now := support.Now(h.Clock)

	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return dto.Review{}, err
	}
	hasReview := true
	if _, err := unit.Reviews().ByBooking(ctx, booking.ID); errors.Is(err, domainreviews.ErrNotFound) {
		hasReview = false
	} else if err != nil {
		return dto.Review{}, err
	}
	if err := booking.EnsureReviewable(cmd.AuthorID, hasReview); err != nil {
		return dto.Review{}, err
	}

	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:        domainreviews.ReviewID(uuid.NewString()),
		BookingID: booking.ID,
		ListingID: booking.ListingID,
		AuthorID:  cmd.AuthorID,
		Rating:    cmd.Rating,
		Comment:   cmd.Comment,
		CreatedAt: now,
	})
	if err != nil {
		return dto.Review{}, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		return dto.Review{}, err
	}
	if err := refreshListingRating(ctx, unit.Reviews(), unit.Listings(), booking.ListingID, now); err != nil {
		return dto.Review{}, err
	}
	if err := outbox.RecordFrom(ctx, unit.Outbox(), h.Encoder, review); err != nil {
		return dto.Review{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.Review{}, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "review submitted", "booking_id", booking.ID, "listing_id", booking.ListingID, "rating", cmd.Rating)
	}
	return dto.MapReview(review), nil
}

func refreshListingRating(ctx context.Context, reviews domainreviews.Repository, listings domainlistings.ListingRepository, listingID domainlistings.ListingID, now time.Time) error {
	all, err := reviews.ListByListing(ctx, listingID, 0, 0)
	if err != nil {
		return err
	}
	listing, err := listings.ByID(ctx, listingID)
	if err != nil {
		return err
	}
	listing.UpdateRating(domainreviews.AverageRating(all), now)
	return listings.Save(ctx, listing)
}

var _ commands.Handler[SubmitReviewCommand, dto.Review] = (*SubmitReviewHandler)(nil)
