package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rentspace/internal/app/uow"
	domainavailability "rentspace/internal/domain/availability"
	domainlistings "rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/money"
)

// File is the YAML layout of a demo data set.
type File struct {
	Listings []Listing `yaml:"listings"`
}

type Listing struct {
	ID                string   `yaml:"id"`
	Owner             string   `yaml:"owner"`
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	RentalType        string   `yaml:"rental_type"`
	Location          string   `yaml:"location"`
	UnitPrice         string   `yaml:"unit_price"`
	Currency          string   `yaml:"currency"`
	PricingUnit       string   `yaml:"pricing_unit"`
	InstantBook       bool     `yaml:"instant_book"`
	AvailabilityModel string   `yaml:"availability_model"`
	Windows           []Window `yaml:"windows"`
	// SeedDays marks that many days from today available on deny-list listings.
	SeedDays    int      `yaml:"seed_days"`
	BlockedDays []string `yaml:"blocked_days"`
}

type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Load parses the fixture file at path.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("fixtures: %w", err)
	}
	return f, nil
}

// Seed stores every listing that does not exist yet, with its calendar, in
// one unit of work.
func Seed(ctx context.Context, factory uow.UoWFactory, f File, now time.Time) (int, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return 0, err
	}
	ctx = uow.Bind(ctx, unit)
	created := 0
	for _, item := range f.Listings {
		ok, err := seedListing(ctx, unit, item, now)
		if err != nil {
			_ = unit.Rollback(ctx)
			return 0, fmt.Errorf("fixtures: listing %q: %w", item.ID, err)
		}
		if ok {
			created++
		}
	}
	if err := unit.Commit(ctx); err != nil {
		return 0, err
	}
	return created, nil
}

func seedListing(ctx context.Context, unit uow.UnitOfWork, item Listing, now time.Time) (bool, error) {
	id := domainlistings.ListingID(item.ID)
	if _, err := unit.Listings().ByID(ctx, id); err == nil {
		return false, nil
	} else if !errors.Is(err, domainlistings.ErrListingNotFound) {
		return false, err
	}
	currency := item.Currency
	if currency == "" {
		currency = "USD"
	}
	price, err := money.Parse(item.UnitPrice, currency)
	if err != nil {
		return false, err
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:                id,
		Owner:             domainlistings.OwnerID(item.Owner),
		Title:             item.Title,
		Description:       item.Description,
		RentalType:        domainlistings.RentalType(item.RentalType),
		Location:          item.Location,
		UnitPrice:         price,
		PricingUnit:       domainlistings.PricingUnit(item.PricingUnit),
		InstantBook:       item.InstantBook,
		AvailabilityModel: domainlistings.AvailabilityModel(item.AvailabilityModel),
		Now:               now,
	})
	if err != nil {
		return false, err
	}
	cal := domainavailability.NewCalendar(listing.ID, listing.AvailabilityModel)
	for _, w := range item.Windows {
		r, err := parseRange(w)
		if err != nil {
			return false, err
		}
		if err := cal.AddWindow(r, now); err != nil {
			return false, err
		}
	}
	if item.SeedDays > 0 {
		if err := cal.SeedDays(now, item.SeedDays, now); err != nil {
			return false, err
		}
	}
	for _, raw := range item.BlockedDays {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return false, err
		}
		if err := cal.SetDay(d, false, now); err != nil {
			return false, err
		}
	}
	listing.ClearEvents()
	cal.ClearEvents()
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return false, err
	}
	if err := unit.Availability().Save(ctx, cal); err != nil {
		return false, err
	}
	return true, nil
}

func parseRange(w Window) (daterange.DateRange, error) {
	start, err := time.Parse(time.DateOnly, w.Start)
	if err != nil {
		return daterange.DateRange{}, err
	}
	end, err := time.Parse(time.DateOnly, w.End)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(start, end)
}
