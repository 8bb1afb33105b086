package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentspace/internal/app/middleware"
	appoutbox "rentspace/internal/app/outbox"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	domainreviews "rentspace/internal/domain/reviews"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/money"
	infraoutbox "rentspace/internal/infra/outbox"
)

func day(d int) time.Time {
	return time.Date(2026, 11, d, 0, 0, 0, 0, time.UTC)
}

func newBooking(t *testing.T, id domainbooking.BookingID, from, to int) *domainbooking.Booking {
	t.Helper()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        id,
		ListingID: "l1",
		OwnerID:   "owner",
		RenterID:  "renter",
		Range:     daterange.Must(day(from), day(to)),
		Total:     money.Must(1000, "USD"),
		CreatedAt: day(1),
	})
	require.NoError(t, err)
	return b
}

func begin(t *testing.T, f *Factory, readOnly bool) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	return unit
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore())

	unit := begin(t, f, false)
	require.NoError(t, unit.Booking().Save(ctx, newBooking(t, "b1", 3, 5)))
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "booking.requested"}))
	require.NoError(t, unit.Rollback(ctx))

	ro := begin(t, f, true)
	defer ro.Rollback(ctx)
	_, err := ro.Booking().ByID(ctx, "b1")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	assert.Empty(t, NewOutboxSource(f.Store).Pending())
}

func TestCommitPublishesWritesAndOutbox(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore())

	unit := begin(t, f, false)
	b := newBooking(t, "b1", 3, 5)
	require.NoError(t, unit.Booking().Save(ctx, b))
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "booking.requested"}))

	staged, err := unit.Booking().ByID(ctx, "b1")
	require.NoError(t, err, "a unit reads its own writes")
	assert.Equal(t, int64(1), staged.Version)
	require.NoError(t, unit.Commit(ctx))
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)

	ro := begin(t, f, true)
	defer ro.Rollback(ctx)
	got, err := ro.Booking().ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, b.Range, got.Range)
	assert.Empty(t, got.PendingEvents())
	require.Len(t, NewOutboxSource(f.Store).Pending(), 1)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	f := NewFactory(NewStore())
	ro := begin(t, f, true)
	defer ro.Rollback(context.Background())
	assert.Error(t, ro.Booking().Save(context.Background(), newBooking(t, "b1", 1, 2)))
}

func TestReturnedAggregatesAreCopies(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore())
	unit := begin(t, f, false)
	b := newBooking(t, "b1", 3, 5)
	require.NoError(t, unit.Booking().Save(ctx, b))
	require.NoError(t, unit.Commit(ctx))

	b.Status = domainbooking.StatusCancelled

	ro := begin(t, f, true)
	defer ro.Rollback(ctx)
	got, err := ro.Booking().ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, got.Status)
}

func TestFindOverlappingUsesActiveBookingsOnly(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore())
	unit := begin(t, f, false)

	active := newBooking(t, "active", 3, 6)
	cancelled := newBooking(t, "cancelled", 4, 8)
	require.NoError(t, cancelled.Cancel("renter", "", day(2)))
	adjacent := newBooking(t, "adjacent", 10, 12)
	for _, b := range []*domainbooking.Booking{active, cancelled, adjacent} {
		require.NoError(t, unit.Booking().Save(ctx, b))
	}
	require.NoError(t, unit.Commit(ctx))

	ro := begin(t, f, true)
	defer ro.Rollback(ctx)

	found, err := ro.Booking().FindOverlapping(ctx, "l1", daterange.Must(day(5), day(10)), "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domainbooking.BookingID("active"), found[0].ID)

	found, err = ro.Booking().FindOverlapping(ctx, "l1", daterange.Must(day(5), day(10)), "active")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = ro.Booking().FindOverlapping(ctx, "other", daterange.Must(day(1), day(20)), "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReviewSaveRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(NewStore())
	review := func(id domainreviews.ReviewID) *domainreviews.Review {
		r, err := domainreviews.Submit(domainreviews.SubmitParams{ID: id, BookingID: "b1", ListingID: "l1", AuthorID: "renter", Rating: 5, CreatedAt: day(9)})
		require.NoError(t, err)
		return r
	}

	unit := begin(t, f, false)
	require.NoError(t, unit.Reviews().Save(ctx, review("r1")))
	require.NoError(t, unit.Commit(ctx))

	unit = begin(t, f, false)
	defer unit.Rollback(ctx)
	assert.ErrorIs(t, unit.Reviews().Save(ctx, review("r2")), domainreviews.ErrAlreadyReviewed)

	_, err := unit.Reviews().ByBooking(ctx, "b2")
	assert.ErrorIs(t, err, domainreviews.ErrNotFound)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, paginate(items, 0, 0))
	assert.Equal(t, []int{3, 4}, paginate(items, 2, 2))
	assert.Equal(t, []int{5}, paginate(items, 10, 4))
	assert.Nil(t, paginate(items, 2, 5))
}

func TestOutboxSourceClaimAndRetry(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.appendOutbox([]appoutbox.EventRecord{{ID: "e1"}, {ID: "e2"}})
	src := NewOutboxSource(store)

	first, err := src.Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "e1", first.Record.ID)

	require.NoError(t, src.MarkFailed(ctx, "e1", time.Now().Add(time.Hour), "broker down"))
	second, err := src.Claim(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, "e2", second.Record.ID)
	require.NoError(t, src.MarkSent(ctx, "e2"))

	none, err := src.Claim(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, none, "e1 is not due yet")

	require.NoError(t, src.MarkFailed(ctx, "e1", time.Now().Add(-time.Second), "broker down"))
	retry, err := src.Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 2, retry.Attempts)
	assert.Equal(t, infraoutbox.StateClaimed, store.outbox[0].state)
}

func TestKeyedLockerSerialisesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "listing:1", 0)
	require.NoError(t, err)

	other, err := l.Acquire(ctx, "listing:2", 0)
	require.NoError(t, err, "different keys do not block")
	require.NoError(t, other(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(waitCtx, "listing:1", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "release is idempotent")
	again, err := l.Acquire(ctx, "listing:1", 0)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
	assert.Empty(t, l.locks)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Minute)
	require.NoError(t, s.Save(ctx, idemRecord("fresh", time.Now())))
	require.NoError(t, s.Save(ctx, idemRecord("stale", time.Now().Add(-time.Hour))))

	_, ok, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = s.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
}

func idemRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, OccurredAt: at}
}
