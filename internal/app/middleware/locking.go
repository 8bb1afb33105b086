package middleware

import (
	"context"
	"time"

	"rentspace/internal/app/commands"
	"rentspace/internal/domain/shared/errkind"
)

// LockedCommand names the resource a command must hold exclusively, such as
// "listing:<id>" for reservations.
type LockedCommand interface {
	commands.Command
	LockKey() string
}

// Locker grants exclusive keyed locks. Release must be safe to call once
// after the lock expired.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

var ErrLockBusy = errkind.New(errkind.Conflict, "middleware: resource is locked by a concurrent request")

// Locking serialises commands sharing a lock key. It must run outside the
// transaction middleware so the lock outlives the commit.
func Locking(locker Locker, ttl time.Duration) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			locked, ok := cmd.(LockedCommand)
			if !ok || locked.LockKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			release, err := locker.Acquire(ctx, locked.LockKey(), ttl)
			if err != nil {
				return nil, err
			}
			res, err := next.Dispatch(ctx, cmd)
			// release on a fresh context so a cancelled request still frees the key
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			_ = release(relCtx)
			return res, err
		})
	}
}
