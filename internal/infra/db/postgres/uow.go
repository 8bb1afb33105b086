package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	appoutbox "rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/errkind"
)

var (
	ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")
	ErrConcurrentUpdate        = errkind.New(errkind.Conflict, "postgres: concurrent update detected")
)

// Factory opens one gorm transaction per unit of work.
type Factory struct {
	DB *gorm.DB
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx := f.DB.WithContext(ctx).Begin(&sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: opts.ReadOnly})
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{tx: tx}, nil
}

type Unit struct {
	tx *gorm.DB
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return listingRepository{db: u.tx}
}

func (u *Unit) Availability() domainavailability.Repository {
	return calendarRepository{db: u.tx}
}

func (u *Unit) Booking() domainbooking.Repository {
	return bookingRepository{db: u.tx}
}

func (u *Unit) Reviews() domainreviews.Repository {
	return reviewRepository{db: u.tx}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return outboxWriter{db: u.tx}
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit().Error
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback().Error
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
