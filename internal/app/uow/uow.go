package uow

import (
	"context"

	"rentspace/internal/app/outbox"
	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
)

// UnitOfWork groups the repositories touched by one atomic operation.
// Writes made through it become visible to others only on Commit.
type UnitOfWork interface {
	Listings() domainlistings.ListingRepository
	Availability() domainavailability.Repository
	Booking() domainbooking.Repository
	Reviews() domainreviews.Repository
	// Outbox stores event records in the same transaction as the aggregates.
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that need a derived context, such
// as a driver session, for repository calls.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Bind stores unit in ctx, letting it inject its own context first.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
