package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainavailability "rentspace/internal/domain/availability"
	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/errkind"
)

type result struct {
	Value string `json:"value"`
}

type testCommand struct {
	Name    string `validate:"required"`
	IdemKey string
	Lock    string
}

func (c testCommand) Key() string            { return "test.command" }
func (c testCommand) IdempotencyKey() string { return c.IdemKey }
func (c testCommand) ResultPrototype() any   { return &result{} }
func (c testCommand) LockKey() string        { return c.Lock }

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

type mapStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = map[string]IdempotencyRecord{}
	}
	s.items[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysResults(t *testing.T) {
	calls := 0
	bus := Idempotency(&mapStore{}, nil)(busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return &result{Value: "first"}, nil
	}))

	first, err := bus.Dispatch(context.Background(), testCommand{Name: "a", IdemKey: "k1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), testCommand{Name: "a", IdemKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.IsType(t, &result{}, second)

	_, err = bus.Dispatch(context.Background(), testCommand{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "commands without a key are never replayed")
}

func TestIdempotencyReplaysRejectionsButNotGatewayFailures(t *testing.T) {
	outcome := errkind.New(errkind.Conflict, "taken")
	calls := 0
	bus := Idempotency(&mapStore{}, nil)(busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return nil, outcome
	}))

	_, err := bus.Dispatch(context.Background(), testCommand{Name: "a", IdemKey: "k1"})
	require.Error(t, err)
	_, err = bus.Dispatch(context.Background(), testCommand{Name: "a", IdemKey: "k1"})
	assert.Equal(t, errkind.Conflict, errkind.KindOf(err))
	assert.Equal(t, "taken", errkind.MessageOf(err))
	assert.Equal(t, 1, calls)

	outcome = errkind.New(errkind.ExternalServiceFailure, "gateway down")
	_, _ = bus.Dispatch(context.Background(), testCommand{Name: "a", IdemKey: "k2"})
	_, _ = bus.Dispatch(context.Background(), testCommand{Name: "a", IdemKey: "k2"})
	assert.Equal(t, 3, calls)
}

type chanLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	order []string
}

func (l *chanLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, ErrLockBusy
	}
	l.held[key] = true
	l.order = append(l.order, "acquire:"+key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.order = append(l.order, "release:"+key)
		return nil
	}, nil
}

func TestLockingHoldsKeyAroundDispatch(t *testing.T) {
	locker := &chanLocker{}
	var nested error
	var bus commands.Bus
	bus = Locking(locker, time.Second)(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_, nested = bus.Dispatch(ctx, testCommand{Name: "inner", Lock: "listing:1"})
		return nil, errors.New("boom")
	}))

	_, err := bus.Dispatch(context.Background(), testCommand{Name: "outer", Lock: "listing:1"})

	require.EqualError(t, err, "boom")
	assert.Equal(t, errkind.Conflict, errkind.KindOf(nested))
	assert.Equal(t, []string{"acquire:listing:1", "release:listing:1"}, locker.order)
}

func TestLockingSkipsUnkeyedCommands(t *testing.T) {
	locker := &chanLocker{}
	bus := Locking(locker, 0)(busFunc(func(context.Context, commands.Command) (any, error) { return "ok", nil }))

	res, err := bus.Dispatch(context.Background(), testCommand{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Empty(t, locker.order)
}

func TestValidationRejectsBeforeDispatch(t *testing.T) {
	called := false
	bus := Validation(NewStructValidator())(busFunc(func(context.Context, commands.Command) (any, error) {
		called = true
		return nil, nil
	}))

	_, err := bus.Dispatch(context.Background(), testCommand{})

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, errkind.InvalidInput, errkind.KindOf(err))
	assert.Contains(t, errkind.MessageOf(err), "name")
}

type recordingUnit struct {
	committed  bool
	rolledBack bool
}

func (u *recordingUnit) Listings() domainlistings.ListingRepository  { return nil }
func (u *recordingUnit) Availability() domainavailability.Repository { return nil }
func (u *recordingUnit) Booking() domainbooking.Repository           { return nil }
func (u *recordingUnit) Reviews() domainreviews.Repository           { return nil }
func (u *recordingUnit) Outbox() outbox.Outbox                       { return nil }

func (u *recordingUnit) Commit(context.Context) error {
	u.committed = true
	return nil
}

func (u *recordingUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type recordingFactory struct {
	units []*recordingUnit
	opts  []uow.TxOptions
}

func (f *recordingFactory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	u := &recordingUnit{}
	f.units = append(f.units, u)
	f.opts = append(f.opts, opts)
	return u, nil
}

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	factory := &recordingFactory{}
	fail := false
	bus := Transaction(factory, nil)(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		if _, ok := uow.FromContext(ctx); !ok {
			return nil, uow.ErrUnitOfWorkMissing
		}
		if fail {
			return nil, errors.New("handler failed")
		}
		return "ok", nil
	}))

	_, err := bus.Dispatch(context.Background(), testCommand{Name: "a"})
	require.NoError(t, err)
	fail = true
	_, err = bus.Dispatch(context.Background(), testCommand{Name: "a"})
	require.Error(t, err)

	require.Len(t, factory.units, 2)
	assert.True(t, factory.units[0].committed)
	assert.False(t, factory.units[0].rolledBack)
	assert.False(t, factory.units[1].committed)
	assert.True(t, factory.units[1].rolledBack)
}

func TestChainRunsInDeclaredOrder(t *testing.T) {
	var trace []string
	tag := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				trace = append(trace, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		trace = append(trace, "handler")
		return nil, nil
	}), tag("outer"), nil, tag("inner"))

	_, err := bus.Dispatch(context.Background(), testCommand{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}
