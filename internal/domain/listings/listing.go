package listings

import (
	"context"
	"strings"
	"time"

	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/events"
	"rentspace/internal/domain/shared/money"
)

var (
	ErrTitleRequired     = errkind.New(errkind.InvalidInput, "listings: title is required")
	ErrOwnerRequired     = errkind.New(errkind.InvalidInput, "listings: owner is required")
	ErrNegativePrice     = errkind.New(errkind.InvalidInput, "listings: unit price must be non-negative")
	ErrUnknownPricing    = errkind.New(errkind.InvalidInput, "listings: unknown pricing unit")
	ErrUnknownModel      = errkind.New(errkind.InvalidInput, "listings: unknown availability model")
	ErrUnknownRentalType = errkind.New(errkind.InvalidInput, "listings: unknown rental type")
	ErrListingNotFound   = errkind.New(errkind.NotFound, "listings: not found")
	ErrNotOwner          = errkind.New(errkind.Forbidden, "listings: caller is not the listing owner")
)

type ListingID string
type OwnerID string

// PricingUnit is the period the unit price refers to.
type PricingUnit string

const (
	PerHour  PricingUnit = "hour"
	PerDay   PricingUnit = "day"
	PerWeek  PricingUnit = "week"
	PerMonth PricingUnit = "month"
	PerYear  PricingUnit = "year"
	// PerNight is the nightly-price listing variant; it prices like PerDay.
	PerNight PricingUnit = "night"
)

func (u PricingUnit) Valid() bool {
	switch u {
	case PerHour, PerDay, PerWeek, PerMonth, PerYear, PerNight:
		return true
	}
	return false
}

// AvailabilityModel selects how the listing's calendar is interpreted.
type AvailabilityModel string

const (
	// AllowList listings are bookable only inside owner-declared open windows.
	AllowList AvailabilityModel = "ALLOW_LIST"
	// DenyList listings carry one available/blocked flag per date.
	DenyList AvailabilityModel = "DENY_LIST"
)

func (m AvailabilityModel) Valid() bool {
	return m == AllowList || m == DenyList
}

type RentalType string

const (
	RentalProperty  RentalType = "property"
	RentalEquipment RentalType = "equipment"
	RentalService   RentalType = "service"
	RentalPackage   RentalType = "package"
)

func (t RentalType) Valid() bool {
	switch t {
	case RentalProperty, RentalEquipment, RentalService, RentalPackage:
		return true
	}
	return false
}

type Listing struct {
	ID                ListingID
	Owner             OwnerID
	Title             string
	Description       string
	RentalType        RentalType
	Location          string
	UnitPrice         money.Money
	PricingUnit       PricingUnit
	InstantBook       bool
	AvailabilityModel AvailabilityModel
	Rating            float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	// ByIDForUpdate loads the listing and holds it for the rest of the unit of
	// work, serialising reservations on the same listing.
	ByIDForUpdate(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	ListByOwner(ctx context.Context, owner OwnerID) ([]*Listing, error)
}

type CreateListingParams struct {
	ID                ListingID
	Owner             OwnerID
	Title             string
	Description       string
	RentalType        RentalType
	Location          string
	UnitPrice         money.Money
	PricingUnit       PricingUnit
	InstantBook       bool
	AvailabilityModel AvailabilityModel
	Now               time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errkind.New(errkind.InvalidInput, "listings: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.RentalType == "" {
		params.RentalType = RentalProperty
	}
	if !params.RentalType.Valid() {
		return nil, ErrUnknownRentalType
	}
	if params.PricingUnit == "" {
		params.PricingUnit = PerDay
	}
	if !params.PricingUnit.Valid() {
		return nil, ErrUnknownPricing
	}
	if params.AvailabilityModel == "" {
		params.AvailabilityModel = AllowList
	}
	if !params.AvailabilityModel.Valid() {
		return nil, ErrUnknownModel
	}
	if params.UnitPrice.Amount < 0 {
		return nil, ErrNegativePrice
	}
	if _, err := money.New(params.UnitPrice.Amount, params.UnitPrice.Currency); err != nil {
		return nil, errkind.Wrap(errkind.InvalidInput, "listings: invalid currency", err)
	}

	now := params.Now.UTC()
	listing := &Listing{
		ID:                params.ID,
		Owner:             params.Owner,
		Title:             strings.TrimSpace(params.Title),
		Description:       strings.TrimSpace(params.Description),
		RentalType:        params.RentalType,
		Location:          strings.TrimSpace(params.Location),
		UnitPrice:         params.UnitPrice,
		PricingUnit:       params.PricingUnit,
		InstantBook:       params.InstantBook,
		AvailabilityModel: params.AvailabilityModel,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, OwnerID: listing.Owner, At: now})
	return listing, nil
}

// OwnedBy reports whether id is the listing owner.
func (l *Listing) OwnedBy(id string) bool {
	return string(l.Owner) == strings.TrimSpace(id)
}

// UpdatePricing changes the price terms for future bookings; existing bookings keep their total.
func (l *Listing) UpdatePricing(price money.Money, unit PricingUnit, instantBook bool, now time.Time) error {
	if price.Amount < 0 {
		return ErrNegativePrice
	}
	if !unit.Valid() {
		return ErrUnknownPricing
	}
	l.UnitPrice = price
	l.PricingUnit = unit
	l.InstantBook = instantBook
	l.UpdatedAt = now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

func (l *Listing) UpdateRating(rating float64, now time.Time) {
	l.Rating = rating
	l.UpdatedAt = now.UTC()
}
