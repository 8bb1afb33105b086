package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	availabilityapp "rentspace/internal/app/handlers/availability"
	bookingapp "rentspace/internal/app/handlers/booking"
	listingsapp "rentspace/internal/app/handlers/listings"
	reviewsapp "rentspace/internal/app/handlers/reviews"
	"rentspace/internal/app/middleware"
	"rentspace/internal/app/queries"
	domainbooking "rentspace/internal/domain/booking"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/domain/shared/money"
	"rentspace/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return daterange.Day(testNow).AddDate(0, 0, offset)
}

type gatewayMock struct {
	mock.Mock
}

func (g *gatewayMock) Charge(ctx context.Context, amount money.Money, token string) (string, error) {
	args := g.Called(amount, token)
	return args.String(0), args.Error(1)
}

func (g *gatewayMock) Refund(ctx context.Context, transactionID string) error {
	return g.Called(transactionID).Error(0)
}

type harness struct {
	app     Application
	store   *memory.Store
	gateway *gatewayMock
	logs    *bytes.Buffer
}

func newHarness(t *testing.T, mode domainbooking.OverlapMode) *harness {
	t.Helper()
	return newHarnessWith(t, mode, memory.NewIdempotencyStore(time.Hour))
}

func newHarnessWith(t *testing.T, mode domainbooking.OverlapMode, idempotency middleware.IdempotencyStore) *harness {
	t.Helper()
	store := memory.NewStore()
	gateway := &gatewayMock{}
	t.Cleanup(func() { gateway.AssertExpectations(t) })
	var seq atomic.Int64
	logs := &bytes.Buffer{}
	app := Build(Deps{
		UoWFactory:      memory.NewFactory(store),
		Idempotency:     idempotency,
		Locker:          memory.NewKeyedLocker(),
		LockTTL:         time.Second,
		Gateway:         gateway,
		OverlapMode:     mode,
		Clock:           func() time.Time { return testNow },
		IDGenerator:     func() string { return fmt.Sprintf("bkg-%d", seq.Add(1)) },
		DefaultCurrency: "USD",
		Logger:          slog.New(slog.NewJSONHandler(logs, nil)),
	})
	return &harness{app: app, store: store, gateway: gateway, logs: logs}
}

// listing creates an allow-list listing priced at 100.00 USD per day, open
// from tomorrow for sixty days.
func (h *harness) listing(t *testing.T, owner string, instant bool) string {
	t.Helper()
	ctx := context.Background()
	created, err := commands.Dispatch[listingsapp.CreateListingCommand, *dto.Listing](ctx, h.app.Commands, listingsapp.CreateListingCommand{
		OwnerID:           owner,
		Title:             "Harbour loft",
		UnitPrice:         "100",
		PricingUnit:       "day",
		InstantBook:       instant,
		AvailabilityModel: "ALLOW_LIST",
	})
	require.NoError(t, err)
	_, err = commands.Dispatch[availabilityapp.AddWindowCommand, dto.Calendar](ctx, h.app.Commands, availabilityapp.AddWindowCommand{
		ListingID: created.ID,
		OwnerID:   owner,
		StartDate: day(1),
		EndDate:   day(61),
	})
	require.NoError(t, err)
	return created.ID
}

func (h *harness) reserve(listingID, renter string, from, to int) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), h.app.Commands, bookingapp.RequestBookingCommand{
		ListingID: listingID,
		RenterID:  renter,
		StartDate: day(from),
		EndDate:   day(to),
	})
}

func (h *harness) pay(bookingID, payer, key string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.PayBookingCommand, *dto.Booking](context.Background(), h.app.Commands, bookingapp.PayBookingCommand{
		BookingID:       bookingID,
		PayerID:         payer,
		PaymentToken:    "tok_visa",
		IdempotencyKeyV: key,
	})
}

func (h *harness) cancel(bookingID, actor string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](context.Background(), h.app.Commands, bookingapp.CancelBookingCommand{
		BookingID: bookingID,
		ActorID:   actor,
		Reason:    "plans changed",
	})
}

func (h *harness) review(bookingID, author string, rating int) (dto.Review, error) {
	return commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](context.Background(), h.app.Commands, reviewsapp.SubmitReviewCommand{
		BookingID: bookingID,
		AuthorID:  author,
		Rating:    rating,
		Comment:   "Spotless",
	})
}

func (h *harness) mine(t *testing.T, renter string) []dto.Booking {
	t.Helper()
	out, err := queries.Ask[bookingapp.MyBookingsQuery, dto.BookingCollection](context.Background(), h.app.Queries, bookingapp.MyBookingsQuery{RenterID: renter})
	require.NoError(t, err)
	return out.Items
}

// slowIdempotency widens the window between the lookup and the save of a key.
type slowIdempotency struct {
	*memory.IdempotencyStore
	delay time.Duration
}

func (s slowIdempotency) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	time.Sleep(s.delay)
	return s.IdempotencyStore.Get(ctx, key)
}

func assertKind(t *testing.T, want errkind.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, errkind.KindOf(err), "error: %v", err)
}

func TestReserveComputesTotalAndPendingStatus(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", false)

	booking, err := h.reserve(listingID, "renter", 5, 8)
	require.NoError(t, err)

	assert.Equal(t, "PENDING", booking.Status)
	assert.Equal(t, "UNPAID", booking.PaymentStatus)
	assert.Equal(t, 3, booking.Days)
	assert.Equal(t, int64(30000), booking.Total.Amount)
	assert.Equal(t, "300.00", booking.Total.Display)
	assert.Equal(t, "owner", booking.OwnerID)

	events := memory.NewOutboxSource(h.store).Pending()
	var names []string
	for _, e := range events {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "booking.requested")
	assert.NotContains(t, names, "booking.confirmed")
}

func TestReserveRejections(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", false)

	cases := []struct {
		name    string
		listing string
		renter  string
		from    int
		to      int
		want    errkind.Kind
	}{
		{name: "owner books own listing", listing: listingID, renter: "owner", from: 5, to: 7, want: errkind.SelfBooking},
		{name: "start in the past", listing: listingID, renter: "renter", from: -2, to: 3, want: errkind.PastStartDate},
		{name: "end before start", listing: listingID, renter: "renter", from: 7, to: 5, want: errkind.InvalidRange},
		{name: "empty range", listing: listingID, renter: "renter", from: 7, to: 7, want: errkind.InvalidRange},
		{name: "outside open window", listing: listingID, renter: "renter", from: 55, to: 70, want: errkind.Unavailable},
		{name: "unknown listing", listing: "missing", renter: "renter", from: 5, to: 7, want: errkind.NotFound},
		{name: "missing renter", listing: listingID, renter: "", from: 5, to: 7, want: errkind.InvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.reserve(tc.listing, tc.renter, tc.from, tc.to)
			assertKind(t, tc.want, err)
		})
	}
	assert.Empty(t, h.mine(t, "renter"))
}

func TestReserveConflictsFollowOverlapMode(t *testing.T) {
	cases := []struct {
		name         string
		mode         domainbooking.OverlapMode
		from         int
		to           int
		wantConflict bool
	}{
		{name: "inclusive back to back", mode: domainbooking.OverlapInclusiveEnd, from: 8, to: 10, wantConflict: true},
		{name: "exclusive back to back", mode: domainbooking.OverlapExclusiveEnd, from: 8, to: 10, wantConflict: false},
		{name: "inclusive ends on start", mode: domainbooking.OverlapInclusiveEnd, from: 3, to: 5, wantConflict: true},
		{name: "exclusive ends on start", mode: domainbooking.OverlapExclusiveEnd, from: 3, to: 5, wantConflict: false},
		{name: "inclusive overlap", mode: domainbooking.OverlapInclusiveEnd, from: 6, to: 9, wantConflict: true},
		{name: "exclusive overlap", mode: domainbooking.OverlapExclusiveEnd, from: 6, to: 9, wantConflict: true},
		{name: "inclusive one day gap", mode: domainbooking.OverlapInclusiveEnd, from: 9, to: 12, wantConflict: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.mode)
			listingID := h.listing(t, "owner", false)
			_, err := h.reserve(listingID, "first", 5, 8)
			require.NoError(t, err)

			_, err = h.reserve(listingID, "second", tc.from, tc.to)
			if tc.wantConflict {
				assertKind(t, errkind.Conflict, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCancelledBookingReleasesDates(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", false)

	first, err := h.reserve(listingID, "first", 5, 8)
	require.NoError(t, err)
	cancelled, err := h.cancel(first.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)

	second, err := h.reserve(listingID, "second", 5, 8)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", second.Status)

	_, err = h.cancel(first.ID, "first")
	assertKind(t, errkind.InvalidState, err)
}

func TestConcurrentReservationsAdmitExactlyOne(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", true)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := h.reserve(listingID, fmt.Sprintf("renter-%d", i), 10, 14)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errkind.KindOf(err) == errkind.Conflict:
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
}

func TestInstantBookPayThenReview(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", true)

	booking, err := h.reserve(listingID, "renter", 3, 5)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", booking.Status)

	_, err = h.review(booking.ID, "renter", 5)
	assertKind(t, errkind.ReviewNotEligible, err)

	_, err = h.pay(booking.ID, "owner", "")
	assertKind(t, errkind.Forbidden, err)

	h.gateway.On("Charge", money.Must(20000, "USD"), "tok_visa").Return("txn-1", nil).Once()
	paid, err := h.pay(booking.ID, "renter", "")
	require.NoError(t, err)
	assert.Equal(t, "PAID", paid.PaymentStatus)

	_, err = h.pay(booking.ID, "renter", "")
	assertKind(t, errkind.AlreadyPaid, err)

	_, err = h.review(booking.ID, "someone-else", 4)
	assertKind(t, errkind.Forbidden, err)

	review, err := h.review(booking.ID, "renter", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, listingID, review.ListingID)

	_, err = h.review(booking.ID, "renter", 5)
	assertKind(t, errkind.ReviewNotEligible, err)

	listing, err := queries.Ask[listingsapp.GetListingQuery, dto.Listing](context.Background(), h.app.Queries, listingsapp.GetListingQuery{ListingID: listingID})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, listing.Rating, 0.001)

	reviews, err := queries.Ask[reviewsapp.ListListingReviewsQuery, dto.ReviewCollection](context.Background(), h.app.Queries, reviewsapp.ListListingReviewsQuery{ListingID: listingID})
	require.NoError(t, err)
	assert.Equal(t, 1, reviews.Total)

	mine := h.mine(t, "renter")
	require.Len(t, mine, 1)
	assert.False(t, mine[0].CanReview)
}

func TestPendingBookingCanBePaidButNotReviewed(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", false)
	booking, err := h.reserve(listingID, "renter", 3, 4)
	require.NoError(t, err)

	h.gateway.On("Charge", mock.Anything, "tok_visa").Return("txn-1", nil).Once()
	_, err = h.pay(booking.ID, "renter", "")
	require.NoError(t, err)

	_, err = h.review(booking.ID, "renter", 5)
	assertKind(t, errkind.ReviewNotEligible, err)

	_, err = commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](context.Background(), h.app.Commands, bookingapp.ConfirmBookingCommand{BookingID: booking.ID, OwnerID: "renter"})
	assertKind(t, errkind.Forbidden, err)

	confirmed, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](context.Background(), h.app.Commands, bookingapp.ConfirmBookingCommand{BookingID: booking.ID, OwnerID: "owner"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)

	_, err = h.review(booking.ID, "renter", 5)
	require.NoError(t, err)
}

func TestPayGatewayFailureLeavesBookingUnpaid(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", true)
	booking, err := h.reserve(listingID, "renter", 3, 4)
	require.NoError(t, err)

	h.gateway.On("Charge", mock.Anything, "tok_visa").Return("", errors.New("card declined")).Once()
	_, err = h.pay(booking.ID, "renter", "")
	assertKind(t, errkind.ExternalServiceFailure, err)

	mine := h.mine(t, "renter")
	require.Len(t, mine, 1)
	assert.Equal(t, "UNPAID", mine[0].PaymentStatus)
	assert.Equal(t, "CONFIRMED", mine[0].Status)
}

func TestPayReplaysIdempotentRequest(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", true)
	booking, err := h.reserve(listingID, "renter", 3, 4)
	require.NoError(t, err)

	h.gateway.On("Charge", mock.Anything, "tok_visa").Return("txn-1", nil).Once()
	first, err := h.pay(booking.ID, "renter", "pay-1")
	require.NoError(t, err)
	second, err := h.pay(booking.ID, "renter", "pay-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "PAID", second.PaymentStatus)
	h.gateway.AssertNumberOfCalls(t, "Charge", 1)
}

func TestCancelPaidBookingRefundsFirst(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", true)
	booking, err := h.reserve(listingID, "renter", 3, 6)
	require.NoError(t, err)

	h.gateway.On("Charge", mock.Anything, "tok_visa").Return("txn-1", nil).Once()
	_, err = h.pay(booking.ID, "renter", "")
	require.NoError(t, err)

	h.gateway.On("Refund", "txn-1").Return(errors.New("provider timeout")).Once()
	_, err = h.cancel(booking.ID, "owner")
	assertKind(t, errkind.ExternalServiceFailure, err)
	mine := h.mine(t, "renter")
	require.Len(t, mine, 1)
	assert.Equal(t, "CONFIRMED", mine[0].Status)
	assert.Equal(t, "PAID", mine[0].PaymentStatus)

	h.gateway.On("Refund", "txn-1").Return(nil).Once()
	cancelled, err := h.cancel(booking.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "REFUNDED", cancelled.PaymentStatus)
	assert.Contains(t, h.logs.String(), `"msg":"payment refunded"`)
	assert.Contains(t, h.logs.String(), `"payment_ref":"txn-1"`)

	_, err = h.pay(booking.ID, "renter", "")
	assertKind(t, errkind.NotPayable, err)

	_, err = h.cancel(booking.ID, "stranger")
	assertKind(t, errkind.Forbidden, err)
}

func TestHostBookingsReportRevenue(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", true)
	paid, err := h.reserve(listingID, "renter", 3, 5)
	require.NoError(t, err)
	_, err = h.reserve(listingID, "other", 10, 11)
	require.NoError(t, err)

	h.gateway.On("Charge", mock.Anything, "tok_visa").Return("txn-1", nil).Once()
	_, err = h.pay(paid.ID, "renter", "")
	require.NoError(t, err)

	out, err := queries.Ask[bookingapp.HostBookingsQuery, dto.HostBookingCollection](context.Background(), h.app.Queries, bookingapp.HostBookingsQuery{OwnerID: "owner"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, int64(20000), out.Revenue.Amount)
	assert.Equal(t, "USD", out.Revenue.Currency)

	_, err = queries.Ask[bookingapp.HostBookingsQuery, dto.HostBookingCollection](context.Background(), h.app.Queries, bookingapp.HostBookingsQuery{OwnerID: "owner", Status: "bogus"})
	assertKind(t, errkind.InvalidInput, err)

	for filter, want := range map[string]int{"confirmed": 2, " Pending ": 0, "CANCELLED": 0, "all": 2} {
		out, err := queries.Ask[bookingapp.HostBookingsQuery, dto.HostBookingCollection](context.Background(), h.app.Queries, bookingapp.HostBookingsQuery{OwnerID: "owner", Status: filter})
		require.NoError(t, err, filter)
		assert.Len(t, out.Items, want, filter)
	}
}

func TestOwnerRepriceKeepsExistingTotals(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", false)
	before, err := h.reserve(listingID, "renter", 3, 6)
	require.NoError(t, err)
	require.Equal(t, int64(30000), before.Total.Amount)

	update := func(owner string, cmd listingsapp.UpdateListingCommand) (*dto.Listing, error) {
		cmd.ListingID = listingID
		cmd.OwnerID = owner
		return commands.Dispatch[listingsapp.UpdateListingCommand, *dto.Listing](context.Background(), h.app.Commands, cmd)
	}

	_, err = update("renter", listingsapp.UpdateListingCommand{UnitPrice: "1"})
	assertKind(t, errkind.Forbidden, err)
	_, err = update("owner", listingsapp.UpdateListingCommand{UnitPrice: "-5"})
	assertKind(t, errkind.InvalidInput, err)

	instant := true
	repriced, err := update("owner", listingsapp.UpdateListingCommand{UnitPrice: "150", InstantBook: &instant})
	require.NoError(t, err)
	assert.Equal(t, int64(15000), repriced.UnitPrice.Amount)
	assert.Equal(t, "day", repriced.PricingUnit)
	assert.True(t, repriced.InstantBook)

	after, err := h.reserve(listingID, "other", 10, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), after.Total.Amount)
	assert.Equal(t, "CONFIRMED", after.Status)

	mine := h.mine(t, "renter")
	require.Len(t, mine, 1)
	assert.Equal(t, int64(30000), mine[0].Total.Amount)
	assert.Equal(t, "PENDING", mine[0].Status)

	names := []string{}
	for _, e := range memory.NewOutboxSource(h.store).Pending() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "listing.updated")
}

func TestQuoteAndCalendar(t *testing.T) {
	h := newHarness(t, domainbooking.OverlapInclusiveEnd)
	listingID := h.listing(t, "owner", false)

	quote, err := queries.Ask[listingsapp.QuoteListingQuery, dto.Quote](context.Background(), h.app.Queries, listingsapp.QuoteListingQuery{
		ListingID: listingID,
		StartDate: day(2),
		EndDate:   day(9),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, quote.Days)
	assert.Equal(t, int64(70000), quote.Total.Amount)
	assert.True(t, quote.Available)

	cal, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](context.Background(), h.app.Queries, availabilityapp.GetCalendarQuery{ListingID: listingID})
	require.NoError(t, err)
	assert.Equal(t, "ALLOW_LIST", cal.Model)
	require.Len(t, cal.Windows, 1)
	assert.Equal(t, day(1).Format(time.DateOnly), cal.Windows[0].StartDate)

	_, err = commands.Dispatch[availabilityapp.AddWindowCommand, dto.Calendar](context.Background(), h.app.Commands, availabilityapp.AddWindowCommand{
		ListingID: listingID,
		OwnerID:   "intruder",
		StartDate: day(70),
		EndDate:   day(80),
	})
	assertKind(t, errkind.Forbidden, err)
}

func TestConcurrentRetriesShareOneReservation(t *testing.T) {
	h := newHarnessWith(t, domainbooking.OverlapInclusiveEnd, slowIdempotency{IdempotencyStore: memory.NewIdempotencyStore(time.Hour), delay: 20 * time.Millisecond})
	listingID := h.listing(t, "owner", false)
	cmd := bookingapp.RequestBookingCommand{
		ListingID:       listingID,
		RenterID:        "renter",
		StartDate:       day(5),
		EndDate:         day(8),
		IdempotencyKeyV: "retry-1",
	}
	send := func() (*dto.Booking, error) {
		return commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), h.app.Commands, cmd)
	}

	var wg sync.WaitGroup
	results := make([]*dto.Booking, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = send()
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].ID, results[1].ID)

	again, err := send()
	require.NoError(t, err)
	assert.Equal(t, results[0].ID, again.ID)
	assert.Len(t, h.mine(t, "renter"), 1)
}
