package postgres

import (
	"time"

	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/money"
)

type ListingModel struct {
	ID                string `gorm:"primaryKey"`
	OwnerID           string `gorm:"index;not null"`
	Title             string `gorm:"not null"`
	Description       string
	RentalType        string
	Location          string
	UnitPriceAmount   int64  `gorm:"not null"`
	Currency          string `gorm:"size:3;not null"`
	PricingUnit       string `gorm:"not null"`
	InstantBook       bool
	AvailabilityModel string `gorm:"not null"`
	Rating            float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

func (ListingModel) TableName() string { return "listings" }

func newListingModel(l *domainlistings.Listing) ListingModel {
	return ListingModel{
		ID:                string(l.ID),
		OwnerID:           string(l.Owner),
		Title:             l.Title,
		Description:       l.Description,
		RentalType:        string(l.RentalType),
		Location:          l.Location,
		UnitPriceAmount:   l.UnitPrice.Amount,
		Currency:          l.UnitPrice.Currency,
		PricingUnit:       string(l.PricingUnit),
		InstantBook:       l.InstantBook,
		AvailabilityModel: string(l.AvailabilityModel),
		Rating:            l.Rating,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
		Version:           l.Version,
	}
}

func (m ListingModel) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:                domainlistings.ListingID(m.ID),
		Owner:             domainlistings.OwnerID(m.OwnerID),
		Title:             m.Title,
		Description:       m.Description,
		RentalType:        domainlistings.RentalType(m.RentalType),
		Location:          m.Location,
		UnitPrice:         money.Money{Amount: m.UnitPriceAmount, Currency: m.Currency},
		PricingUnit:       domainlistings.PricingUnit(m.PricingUnit),
		InstantBook:       m.InstantBook,
		AvailabilityModel: domainlistings.AvailabilityModel(m.AvailabilityModel),
		Rating:            m.Rating,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
		Version:           m.Version,
	}
}

// WindowModel is one open window of an allow-list listing.
type WindowModel struct {
	ID        uint      `gorm:"primaryKey"`
	ListingID string    `gorm:"index;not null"`
	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	CreatedAt time.Time
}

func (WindowModel) TableName() string { return "availability_windows" }

// DayModel is unique per (listing, date).
type DayModel struct {
	ListingID string    `gorm:"primaryKey"`
	Date      time.Time `gorm:"primaryKey;type:date"`
	Available bool
	UpdatedAt time.Time
}

func (DayModel) TableName() string { return "availability_days" }

type BookingModel struct {
	ID            string    `gorm:"primaryKey"`
	ListingID     string    `gorm:"index:idx_bookings_listing_status;not null"`
	OwnerID       string    `gorm:"index"`
	RenterID      string    `gorm:"index;not null"`
	StartDate     time.Time `gorm:"type:date;not null"`
	EndDate       time.Time `gorm:"type:date;not null"`
	TotalAmount   int64     `gorm:"not null"`
	Currency      string    `gorm:"size:3;not null"`
	Status        string    `gorm:"index:idx_bookings_listing_status;not null"`
	PaymentStatus string    `gorm:"not null"`
	PaymentRef    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}

func (BookingModel) TableName() string { return "bookings" }

func newBookingModel(b *domainbooking.Booking) BookingModel {
	return BookingModel{
		ID:            string(b.ID),
		ListingID:     string(b.ListingID),
		OwnerID:       string(b.OwnerID),
		RenterID:      b.RenterID,
		StartDate:     b.Range.Start,
		EndDate:       b.Range.End,
		TotalAmount:   b.Total.Amount,
		Currency:      b.Total.Currency,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PaymentRef:    b.PaymentRef,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		Version:       b.Version,
	}
}

func (m BookingModel) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:            domainbooking.BookingID(m.ID),
		ListingID:     domainlistings.ListingID(m.ListingID),
		OwnerID:       domainlistings.OwnerID(m.OwnerID),
		RenterID:      m.RenterID,
		Range:         daterange.DateRange{Start: daterange.Day(m.StartDate), End: daterange.Day(m.EndDate)},
		Total:         money.Money{Amount: m.TotalAmount, Currency: m.Currency},
		Status:        domainbooking.Status(m.Status),
		PaymentStatus: domainbooking.PaymentStatus(m.PaymentStatus),
		PaymentRef:    m.PaymentRef,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		Version:       m.Version,
	}
}

type ReviewModel struct {
	ID        string `gorm:"primaryKey"`
	BookingID string `gorm:"uniqueIndex;not null"`
	ListingID string `gorm:"index;not null"`
	AuthorID  string `gorm:"not null"`
	Rating    int    `gorm:"not null"`
	Comment   string
	CreatedAt time.Time
}

func (ReviewModel) TableName() string { return "reviews" }

func newReviewModel(r *domainreviews.Review) ReviewModel {
	return ReviewModel{
		ID:        string(r.ID),
		BookingID: string(r.BookingID),
		ListingID: string(r.ListingID),
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (m ReviewModel) toAggregate() *domainreviews.Review {
	return &domainreviews.Review{
		ID:        domainreviews.ReviewID(m.ID),
		BookingID: domainbooking.BookingID(m.BookingID),
		ListingID: domainlistings.ListingID(m.ListingID),
		AuthorID:  m.AuthorID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// OutboxModel backs the transactional outbox table.
type OutboxModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Payload     []byte `gorm:"type:jsonb"`
	OccurredAt  time.Time
	Aggregate   string
	Headers     []byte `gorm:"type:jsonb"`
	State       string `gorm:"index:idx_outbox_due;not null"`
	Attempts    int
	NextAttempt time.Time `gorm:"index:idx_outbox_due"`
	LastError   string
	ClaimedBy   string
	CreatedAt   time.Time
	SentAt      *time.Time
}

func (OutboxModel) TableName() string { return "app_outbox" }

func calendarFromModels(id domainlistings.ListingID, model domainlistings.AvailabilityModel, windows []WindowModel, days []DayModel) *domainavailability.Calendar {
	c := domainavailability.NewCalendar(id, model)
	for _, w := range windows {
		c.Windows = append(c.Windows, domainavailability.Window{
			Range:     daterange.DateRange{Start: daterange.Day(w.StartDate), End: daterange.Day(w.EndDate)},
			CreatedAt: w.CreatedAt.UTC(),
		})
	}
	for _, d := range days {
		date := daterange.Day(d.Date)
		c.Days[domainavailability.DateKey(date)] = domainavailability.DayFlag{Date: date, Available: d.Available, UpdatedAt: d.UpdatedAt.UTC()}
	}
	return c
}
