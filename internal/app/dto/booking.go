package dto

import (
	"time"

	domainbooking "rentspace/internal/domain/booking"
	"rentspace/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
		Display:  value.Decimal().StringFixed(2),
	}
}

type Booking struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	RenterID      string    `json:"renter_id"`
	OwnerID       string    `json:"owner_id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Days          int       `json:"days"`
	Total         MoneyDTO  `json:"total"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CanReview     bool      `json:"can_review"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:            string(b.ID),
		ListingID:     string(b.ListingID),
		RenterID:      b.RenterID,
		OwnerID:       string(b.OwnerID),
		StartDate:     b.Range.Start.Format(time.DateOnly),
		EndDate:       b.Range.End.Format(time.DateOnly),
		Days:          b.Range.Days(),
		Total:         MapMoney(b.Total),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

// HostBookingCollection adds the revenue of confirmed, paid bookings.
type HostBookingCollection struct {
	Items   []Booking `json:"items"`
	Revenue MoneyDTO  `json:"revenue"`
}
