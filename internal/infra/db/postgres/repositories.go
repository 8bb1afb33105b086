package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/daterange"
)

type listingRepository struct {
	db *gorm.DB
}

func (r listingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// ByIDForUpdate takes a row lock held until the unit commits or rolls back.
func (r listingRepository) ByIDForUpdate(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r listingRepository) first(db *gorm.DB, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var m ListingModel
	if err := db.Where("id = ?", string(id)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return m.toAggregate(), nil
}

func (r listingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	m := newListingModel(l)
	m.Version = l.Version + 1
	db := r.db.WithContext(ctx)
	if l.Version == 0 {
		if err := db.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConcurrentUpdate
			}
			return err
		}
		l.Version = m.Version
		return nil
	}
	res := db.Model(&ListingModel{}).
		Where("id = ? AND version = ?", m.ID, l.Version).
		Select("*").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	l.Version = m.Version
	return nil
}

func (r listingRepository) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	var rows []ListingModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", string(owner)).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toAggregate())
	}
	return out, nil
}

type calendarRepository struct {
	db *gorm.DB
}

func (r calendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID, model domainlistings.AvailabilityModel) (*domainavailability.Calendar, error) {
	db := r.db.WithContext(ctx)
	var windows []WindowModel
	if err := db.Where("listing_id = ?", string(id)).Order("id").Find(&windows).Error; err != nil {
		return nil, err
	}
	var days []DayModel
	if err := db.Where("listing_id = ?", string(id)).Order("date").Find(&days).Error; err != nil {
		return nil, err
	}
	return calendarFromModels(id, model, windows, days), nil
}

// Save rewrites the windows and upserts every day flag of the calendar. Callers
// serialise writers through the listing row lock.
func (r calendarRepository) Save(ctx context.Context, c *domainavailability.Calendar) error {
	db := r.db.WithContext(ctx)
	id := string(c.ListingID)
	if err := db.Where("listing_id = ?", id).Delete(&WindowModel{}).Error; err != nil {
		return err
	}
	if len(c.Windows) > 0 {
		rows := make([]WindowModel, 0, len(c.Windows))
		for _, w := range c.Windows {
			rows = append(rows, WindowModel{ListingID: id, StartDate: w.Range.Start, EndDate: w.Range.End, CreatedAt: w.CreatedAt})
		}
		if err := db.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(c.Days) > 0 {
		rows := make([]DayModel, 0, len(c.Days))
		for _, d := range c.SortedDays() {
			rows = append(rows, DayModel{ListingID: id, Date: d.Date, Available: d.Available, UpdatedAt: d.UpdatedAt})
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"available", "updated_at"}),
		}).CreateInBatches(&rows, 500).Error
		if err != nil {
			return err
		}
	}
	c.Version++
	return nil
}

type bookingRepository struct {
	db *gorm.DB
}

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var m BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return m.toAggregate(), nil
}

func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	m := newBookingModel(b)
	m.Version = b.Version + 1
	db := r.db.WithContext(ctx)
	if b.Version == 0 {
		if err := db.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConcurrentUpdate
			}
			return err
		}
		b.Version = m.Version
		return nil
	}
	res := db.Model(&BookingModel{}).
		Where("id = ? AND version = ?", m.ID, b.Version).
		Select("*").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = m.Version
	return nil
}

func (r bookingRepository) FindOverlapping(ctx context.Context, listingID domainlistings.ListingID, probe daterange.DateRange, excludeID domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("listing_id = ?", string(listingID)).
		Where("status IN ?", []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}).
		Where("start_date < ? AND end_date > ?", probe.End, probe.Start)
	if excludeID != "" {
		q = q.Where("id <> ?", string(excludeID))
	}
	return r.find(q)
}

func (r bookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.find(r.db.WithContext(ctx).Where("renter_id = ?", renterID))
}

func (r bookingRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.find(r.db.WithContext(ctx).Where("listing_id = ?", string(listingID)))
}

func (r bookingRepository) find(q *gorm.DB) ([]*domainbooking.Booking, error) {
	var rows []BookingModel
	if err := q.Order("start_date, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toAggregate())
	}
	return out, nil
}

type reviewRepository struct {
	db *gorm.DB
}

func (r reviewRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainreviews.Review, error) {
	var m ReviewModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", string(bookingID)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainreviews.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate(), nil
}

func (r reviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	q := r.db.WithContext(ctx).Where("listing_id = ?", string(listingID)).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var rows []ReviewModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toAggregate())
	}
	return out, nil
}

func (r reviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	m := newReviewModel(review)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainreviews.ErrAlreadyReviewed
		}
		return err
	}
	return nil
}

var (
	_ domainlistings.ListingRepository = listingRepository{}
	_ domainavailability.Repository    = calendarRepository{}
	_ domainbooking.Repository         = bookingRepository{}
	_ domainreviews.Repository         = reviewRepository{}
)
