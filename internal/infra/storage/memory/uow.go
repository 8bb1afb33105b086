package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
)

var ErrUnitClosed = errors.New("memory: unit of work already finished")

// Factory opens units of work over a Store.
type Factory struct {
	Store *Store
}

func NewFactory(store *Store) *Factory {
	return &Factory{Store: store}
}

// Begin opens a unit. Read-write units take the store write lock until
// Commit or Rollback; read-only units read committed state per call.
func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.Store == nil {
		return nil, errors.New("memory: unit of work factory misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := &Unit{store: f.Store, readOnly: opts.ReadOnly}
	if !opts.ReadOnly {
		f.Store.mu.Lock()
		u.listings = make(map[domainlistings.ListingID]*domainlistings.Listing)
		u.calendars = make(map[domainlistings.ListingID]*domainavailability.Calendar)
		u.bookings = make(map[domainbooking.BookingID]*domainbooking.Booking)
		u.reviews = make(map[domainbooking.BookingID]*domainreviews.Review)
	}
	return u, nil
}

// Unit stages writes and applies them to the store on Commit.
type Unit struct {
	store    *Store
	readOnly bool

	once      sync.Once
	finished  bool
	listings  map[domainlistings.ListingID]*domainlistings.Listing
	calendars map[domainlistings.ListingID]*domainavailability.Calendar
	bookings  map[domainbooking.BookingID]*domainbooking.Booking
	reviews   map[domainbooking.BookingID]*domainreviews.Review
	records   []appoutbox.EventRecord
}

func (u *Unit) Listings() domainlistings.ListingRepository  { return listingRepo{u} }
func (u *Unit) Availability() domainavailability.Repository { return calendarRepo{u} }
func (u *Unit) Booking() domainbooking.Repository           { return bookingRepo{u} }
func (u *Unit) Reviews() domainreviews.Repository           { return reviewRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                    { return unitOutbox{u} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.finished {
		return ErrUnitClosed
	}
	if !u.readOnly {
		for id, l := range u.listings {
			u.store.listings[id] = l
		}
		for id, c := range u.calendars {
			u.store.calendars[id] = c
		}
		for id, b := range u.bookings {
			u.store.bookings[id] = b
		}
		for id, r := range u.reviews {
			u.store.reviews[id] = r
		}
		u.store.appendOutbox(u.records)
	}
	u.finish()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.finish()
	return nil
}

func (u *Unit) finish() {
	u.once.Do(func() {
		u.finished = true
		u.listings, u.calendars, u.bookings, u.reviews, u.records = nil, nil, nil, nil, nil
		if !u.readOnly {
			u.store.mu.Unlock()
		}
	})
}

// view runs fn with read access to committed state. Read-write units
// already hold the write lock.
func (u *Unit) view(fn func()) error {
	if u.finished {
		return ErrUnitClosed
	}
	if u.readOnly {
		u.store.mu.RLock()
		defer u.store.mu.RUnlock()
	}
	fn()
	return nil
}

func (u *Unit) writable() error {
	if u.finished {
		return ErrUnitClosed
	}
	if u.readOnly {
		return errors.New("memory: write in read-only unit of work")
	}
	return nil
}

type unitOutbox struct{ u *Unit }

func (o unitOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if err := o.u.writable(); err != nil {
		return err
	}
	o.u.records = append(o.u.records, record)
	return nil
}

var _ uow.UoWFactory = (*Factory)(nil)
