package dto

import (
	"time"

	domainreviews "rentspace/internal/domain/reviews"
)

type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items         []Review `json:"items"`
	Total         int      `json:"total"`
	AverageRating float64  `json:"average_rating"`
}

func MapReview(review *domainreviews.Review) Review {
	if review == nil {
		return Review{}
	}
	return Review{
		ID:        string(review.ID),
		BookingID: string(review.BookingID),
		ListingID: string(review.ListingID),
		AuthorID:  review.AuthorID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}
