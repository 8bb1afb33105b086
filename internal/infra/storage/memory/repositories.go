package memory

import (
	"context"
	"sort"

	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/daterange"
)

type listingRepo struct{ u *Unit }

func (r listingRepo) lookup(id domainlistings.ListingID) (*domainlistings.Listing, bool) {
	if l, ok := r.u.listings[id]; ok {
		return l, true
	}
	l, ok := r.u.store.listings[id]
	return l, ok
}

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var (
		found *domainlistings.Listing
		ok    bool
	)
	if err := r.u.view(func() { found, ok = r.lookup(id) }); err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return cloneListing(found), nil
}

// ByIDForUpdate needs no extra locking: the read-write unit already holds the store.
func (r listingRepo) ByIDForUpdate(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if err := r.u.writable(); err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r listingRepo) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	listing.Version++
	r.u.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r listingRepo) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	var out []*domainlistings.Listing
	err := r.u.view(func() {
		seen := map[domainlistings.ListingID]bool{}
		for id, l := range r.u.listings {
			seen[id] = true
			if l.Owner == owner {
				out = append(out, cloneListing(l))
			}
		}
		for id, l := range r.u.store.listings {
			if !seen[id] && l.Owner == owner {
				out = append(out, cloneListing(l))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type calendarRepo struct{ u *Unit }

func (r calendarRepo) Calendar(ctx context.Context, id domainlistings.ListingID, model domainlistings.AvailabilityModel) (*domainavailability.Calendar, error) {
	var found *domainavailability.Calendar
	err := r.u.view(func() {
		if c, ok := r.u.calendars[id]; ok {
			found = c
			return
		}
		found = r.u.store.calendars[id]
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return domainavailability.NewCalendar(id, model), nil
	}
	return cloneCalendar(found), nil
}

func (r calendarRepo) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	calendar.Version++
	r.u.calendars[calendar.ListingID] = cloneCalendar(calendar)
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var found *domainbooking.Booking
	err := r.u.view(func() {
		if b, ok := r.u.bookings[id]; ok {
			found = b
			return
		}
		found = r.u.store.bookings[id]
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(found), nil
}

func (r bookingRepo) Save(ctx context.Context, booking *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	booking.Version++
	r.u.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// each visits staged bookings first, then committed ones not shadowed by a staged copy.
func (r bookingRepo) each(fn func(*domainbooking.Booking)) error {
	return r.u.view(func() {
		for _, b := range r.u.bookings {
			fn(b)
		}
		for id, b := range r.u.store.bookings {
			if _, staged := r.u.bookings[id]; !staged {
				fn(b)
			}
		}
	})
}

func (r bookingRepo) FindOverlapping(ctx context.Context, listingID domainlistings.ListingID, probe daterange.DateRange, excludeID domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	err := r.each(func(b *domainbooking.Booking) {
		if b.ListingID != listingID || !b.IsActive() {
			return
		}
		if excludeID != "" && b.ID == excludeID {
			return
		}
		if b.Range.Overlaps(probe) {
			out = append(out, cloneBooking(b))
		}
	})
	sortByStart(out)
	return out, err
}

func (r bookingRepo) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	err := r.each(func(b *domainbooking.Booking) {
		if b.RenterID == renterID {
			out = append(out, cloneBooking(b))
		}
	})
	sortByStart(out)
	return out, err
}

func (r bookingRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	err := r.each(func(b *domainbooking.Booking) {
		if b.ListingID == listingID {
			out = append(out, cloneBooking(b))
		}
	})
	sortByStart(out)
	return out, err
}

func sortByStart(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Range.Start.Equal(items[j].Range.Start) {
			return items[i].ID < items[j].ID
		}
		return items[i].Range.Start.Before(items[j].Range.Start)
	})
}

type reviewRepo struct{ u *Unit }

func (r reviewRepo) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainreviews.Review, error) {
	var found *domainreviews.Review
	err := r.u.view(func() {
		if rv, ok := r.u.reviews[bookingID]; ok {
			found = rv
			return
		}
		found = r.u.store.reviews[bookingID]
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domainreviews.ErrNotFound
	}
	return cloneReview(found), nil
}

func (r reviewRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	var out []*domainreviews.Review
	err := r.u.view(func() {
		for _, rv := range r.u.reviews {
			if rv.ListingID == listingID {
				out = append(out, cloneReview(rv))
			}
		}
		for id, rv := range r.u.store.reviews {
			if _, staged := r.u.reviews[id]; !staged && rv.ListingID == listingID {
				out = append(out, cloneReview(rv))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r reviewRepo) Save(ctx context.Context, review *domainreviews.Review) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.reviews[review.BookingID]; ok {
		return domainreviews.ErrAlreadyReviewed
	}
	if _, ok := r.u.store.reviews[review.BookingID]; ok {
		return domainreviews.ErrAlreadyReviewed
	}
	r.u.reviews[review.BookingID] = cloneReview(review)
	return nil
}

// paginate applies offset then limit; limit 0 means no limit.
func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var (
	_ domainlistings.ListingRepository = listingRepo{}
	_ domainavailability.Repository    = calendarRepo{}
	_ domainbooking.Repository         = bookingRepo{}
	_ domainreviews.Repository         = reviewRepo{}
)
