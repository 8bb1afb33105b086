package memory

import (
	"sync"
	"time"

	appoutbox "rentspace/internal/app/outbox"
	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
)

// Store is the committed state shared by all units of work. A read-write
// unit holds mu for its whole lifetime, so write units are serializable.
type Store struct {
	mu        sync.RWMutex
	listings  map[domainlistings.ListingID]*domainlistings.Listing
	calendars map[domainlistings.ListingID]*domainavailability.Calendar
	bookings  map[domainbooking.BookingID]*domainbooking.Booking
	reviews   map[domainbooking.BookingID]*domainreviews.Review

	outboxMu sync.Mutex
	outbox   []*outboxEntry
}

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt time.Time
	lastError   string
}

func NewStore() *Store {
	return &Store{
		listings:  make(map[domainlistings.ListingID]*domainlistings.Listing),
		calendars: make(map[domainlistings.ListingID]*domainavailability.Calendar),
		bookings:  make(map[domainbooking.BookingID]*domainbooking.Booking),
		reviews:   make(map[domainbooking.BookingID]*domainreviews.Review),
	}
}

// Stored aggregates are copied in and out so callers never share pointers
// with the committed state.

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	c := *l
	c.ClearEvents()
	return &c
}

func cloneCalendar(cal *domainavailability.Calendar) *domainavailability.Calendar {
	c := *cal
	c.ClearEvents()
	c.Windows = append([]domainavailability.Window(nil), cal.Windows...)
	c.Days = make(map[string]domainavailability.DayFlag, len(cal.Days))
	for k, v := range cal.Days {
		c.Days[k] = v
	}
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.ClearEvents()
	return &c
}

func cloneReview(r *domainreviews.Review) *domainreviews.Review {
	c := *r
	c.ClearEvents()
	return &c
}
