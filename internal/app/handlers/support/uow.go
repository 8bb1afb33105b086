package support

import (
	"context"
	"time"

	"rentspace/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit already bound to ctx or opens a read-only one.
// cleanup is nil when the unit was borrowed.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}

// Unit is a write unit that is either borrowed from the context or owned by
// the handler. Commit and Close only act on owned units.
type Unit struct {
	uow.UnitOfWork
	ctx       context.Context
	owned     bool
	committed bool
}

// BeginUnit reuses the unit bound to ctx or opens a new read-write one.
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (*Unit, context.Context, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &Unit{UnitOfWork: unit, ctx: ctx}, ctx, nil
	}
	if factory == nil {
		return nil, ctx, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, err
	}
	execCtx := uow.Bind(ctx, unit)
	return &Unit{UnitOfWork: unit, ctx: execCtx, owned: true}, execCtx, nil
}

func (u *Unit) Commit() error {
	if !u.owned || u.committed {
		return nil
	}
	if err := u.UnitOfWork.Commit(u.ctx); err != nil {
		return err
	}
	u.committed = true
	return nil
}

// Close rolls back an owned unit that was not committed.
func (u *Unit) Close() {
	if u.owned && !u.committed {
		_ = u.UnitOfWork.Rollback(u.ctx)
	}
}

// Now returns clock() in UTC, or the current time when clock is nil.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
