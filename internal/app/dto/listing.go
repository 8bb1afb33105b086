package dto

import (
	"time"

	domainlistings "rentspace/internal/domain/listings"
	domainpricing "rentspace/internal/domain/pricing"
)

type Listing struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	RentalType        string    `json:"rental_type"`
	Location          string    `json:"location,omitempty"`
	UnitPrice         MoneyDTO  `json:"unit_price"`
	PricingUnit       string    `json:"pricing_unit"`
	InstantBook       bool      `json:"instant_book"`
	AvailabilityModel string    `json:"availability_model"`
	Rating            float64   `json:"rating"`
	CreatedAt         time.Time `json:"created_at"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	return Listing{
		ID:                string(l.ID),
		OwnerID:           string(l.Owner),
		Title:             l.Title,
		Description:       l.Description,
		RentalType:        string(l.RentalType),
		Location:          l.Location,
		UnitPrice:         MapMoney(l.UnitPrice),
		PricingUnit:       string(l.PricingUnit),
		InstantBook:       l.InstantBook,
		AvailabilityModel: string(l.AvailabilityModel),
		Rating:            l.Rating,
		CreatedAt:         l.CreatedAt,
	}
}

type Quote struct {
	ListingID   string   `json:"listing_id"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Days        int      `json:"days"`
	Units       string   `json:"units"`
	PricingUnit string   `json:"pricing_unit"`
	UnitPrice   MoneyDTO `json:"unit_price"`
	Total       MoneyDTO `json:"total"`
	Available   bool     `json:"available"`
}

func MapQuote(listingID domainlistings.ListingID, start, end time.Time, q domainpricing.Quote, available bool) Quote {
	return Quote{
		ListingID:   string(listingID),
		StartDate:   start.Format(time.DateOnly),
		EndDate:     end.Format(time.DateOnly),
		Days:        q.Days,
		Units:       q.Units.String(),
		PricingUnit: string(q.PricingUnit),
		UnitPrice:   MapMoney(q.UnitPrice),
		Total:       MapMoney(q.Total),
		Available:   available,
	}
}
