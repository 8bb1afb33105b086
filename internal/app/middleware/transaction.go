package middleware

import (
	"context"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/queries"
	"rentspace/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs each command inside a fresh unit of work, committing on
// success and rolling back on error or panic.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}

// QueryTransaction gives each query a read-only unit.
func QueryTransaction(factory uow.UoWFactory) QueryMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return next.Ask(ctx, q)
			}
			unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			defer func() { _ = unit.Rollback(execCtx) }()
			return next.Ask(execCtx, q)
		})
	}
}
