package reviews

import (
	"context"
	"strings"
	"time"

	"rentspace/internal/domain/booking"
	"rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/events"
)

var (
	ErrInvalidRating   = errkind.New(errkind.InvalidInput, "reviews: rating must be between 1 and 5")
	ErrNotFound        = errkind.New(errkind.NotFound, "reviews: not found")
	ErrAlreadyReviewed = errkind.New(errkind.ReviewNotEligible, "reviews: booking already has a review")
)

const maxCommentLength = 2000

type ReviewID string

// Review is immutable once submitted; a booking has at most one.
type Review struct {
	ID        ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	// ByBooking returns ErrNotFound when the booking has no review.
	ByBooking(ctx context.Context, bookingID booking.BookingID) (*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID, limit, offset int) ([]*Review, error)
	// Save inserts a review; a second review for the same booking fails with ErrAlreadyReviewed.
	Save(ctx context.Context, review *Review) error
}

type SubmitParams struct {
	ID        ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	comment := strings.TrimSpace(params.Comment)
	if len(comment) > maxCommentLength {
		return nil, errkind.New(errkind.InvalidInput, "reviews: comment is too long")
	}
	review := &Review{
		ID:        params.ID,
		BookingID: params.BookingID,
		ListingID: params.ListingID,
		AuthorID:  strings.TrimSpace(params.AuthorID),
		Rating:    params.Rating,
		Comment:   comment,
		CreatedAt: params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, BookingID: review.BookingID, ListingID: review.ListingID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}

// AverageRating returns the mean rating, or 0 for no reviews.
func AverageRating(items []*Review) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, r := range items {
		sum += r.Rating
	}
	return float64(sum) / float64(len(items))
}
