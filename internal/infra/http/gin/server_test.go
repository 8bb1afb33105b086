package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentspace/internal/app/bootstrap"
	"rentspace/internal/app/dto"
	"rentspace/internal/domain/shared/errkind"
	"rentspace/internal/infra/obs"
	"rentspace/internal/infra/payments"
	"rentspace/internal/infra/storage/memory"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type apiError struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, ready func() error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := bootstrap.Build(bootstrap.Deps{
		UoWFactory:      memory.NewFactory(memory.NewStore()),
		Idempotency:     memory.NewIdempotencyStore(time.Hour),
		Locker:          memory.NewKeyedLocker(),
		Gateway:         payments.NewFakeGateway(),
		Clock:           func() time.Time { return now },
		DefaultCurrency: "USD",
		Logger:          logger,
	})
	metrics := obs.NewMetrics()
	health := obs.HealthHandlers{}
	if ready != nil {
		health.Ready = func(ctx context.Context) error { return ready() }
	}
	return NewRouter(obs.Middleware{Logger: logger}, health, Handlers{
		Listings:     &ListingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Availability: &AvailabilityHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Bookings:     &BookingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Reviews:      &ReviewsHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Metrics:      metrics.Handler(),
	})
}

func do(t *testing.T, router http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createOpenListing(t *testing.T, router http.Handler, owner string, instant bool) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/v1/listings", owner, map[string]any{
		"title":              "Canal boat",
		"unit_price":         "120.50",
		"pricing_unit":       "day",
		"instant_book":       instant,
		"availability_model": "ALLOW_LIST",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listing := decode[dto.Listing](t, rec)

	rec = do(t, router, http.MethodPost, "/api/v1/listings/"+listing.ID+"/availability/windows", owner, map[string]string{
		"start_date": "2026-10-19",
		"end_date":   "2026-12-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return listing.ID
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t, nil)
	listingID := createOpenListing(t, router, "host", true)

	rec := do(t, router, http.MethodGet, "/api/v1/listings/"+listingID+"/quote?start=2026-10-20&end=2026-10-23", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decode[dto.Quote](t, rec)
	assert.Equal(t, "361.50", quote.Total.Display)

	rec = do(t, router, http.MethodPost, "/api/v1/listings/"+listingID+"/bookings", "guest", map[string]string{
		"start_date": "2026-10-20",
		"end_date":   "2026-10-23",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[dto.Booking](t, rec)
	assert.Equal(t, "CONFIRMED", booking.Status)
	assert.Equal(t, int64(36150), booking.Total.Amount)

	rec = do(t, router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/pay", "guest", map[string]string{"payment_token": "tok_ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PAID", decode[dto.Booking](t, rec).PaymentStatus)

	rec = do(t, router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/review", "guest", map[string]any{"rating": 5, "comment": "Lovely"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/v1/listings/"+listingID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reviews := decode[dto.ReviewCollection](t, rec)
	assert.Equal(t, 1, reviews.Total)
	assert.InDelta(t, 5.0, reviews.AverageRating, 0.001)

	rec = do(t, router, http.MethodGet, "/api/v1/host/bookings", "host", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	host := decode[dto.HostBookingCollection](t, rec)
	assert.Len(t, host.Items, 1)
	assert.Equal(t, "361.50", host.Revenue.Display)

	rec = do(t, router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "host", map[string]string{"reason": "maintenance"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[dto.Booking](t, rec)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "REFUNDED", cancelled.PaymentStatus)
}

func TestErrorResponsesCarryKind(t *testing.T) {
	router := newTestRouter(t, nil)
	listingID := createOpenListing(t, router, "host", false)
	reserve := func(user, start, end string) *httptest.ResponseRecorder {
		return do(t, router, http.MethodPost, "/api/v1/listings/"+listingID+"/bookings", user, map[string]string{
			"start_date": start,
			"end_date":   end,
		})
	}

	rec := reserve("guest", "2026-11-01", "2026-11-05")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cases := []struct {
		name   string
		rec    *httptest.ResponseRecorder
		status int
		kind   errkind.Kind
	}{
		{name: "conflict", rec: reserve("other", "2026-11-05", "2026-11-07"), status: http.StatusConflict, kind: errkind.Conflict},
		{name: "self booking", rec: reserve("host", "2026-11-10", "2026-11-12"), status: http.StatusForbidden, kind: errkind.SelfBooking},
		{name: "past start", rec: reserve("guest", "2026-10-01", "2026-10-25"), status: http.StatusUnprocessableEntity, kind: errkind.PastStartDate},
		{name: "inverted range", rec: reserve("guest", "2026-11-20", "2026-11-18"), status: http.StatusUnprocessableEntity, kind: errkind.InvalidRange},
		{name: "unavailable", rec: reserve("guest", "2026-12-30", "2027-01-03"), status: http.StatusConflict, kind: errkind.Unavailable},
		{name: "bad date", rec: reserve("guest", "tomorrow", "2026-11-18"), status: http.StatusBadRequest, kind: errkind.InvalidInput},
		{name: "unknown listing", rec: do(t, router, http.MethodGet, "/api/v1/listings/nope", "", nil), status: http.StatusNotFound, kind: errkind.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.status, tc.rec.Code, tc.rec.Body.String())
			body := decode[apiError](t, tc.rec)
			assert.Equal(t, string(tc.kind), body.Error.Kind)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestDeclinedPaymentIsBadGateway(t *testing.T) {
	router := newTestRouter(t, nil)
	listingID := createOpenListing(t, router, "host", true)
	rec := do(t, router, http.MethodPost, "/api/v1/listings/"+listingID+"/bookings", "guest", map[string]string{
		"start_date": "2026-10-20",
		"end_date":   "2026-10-21",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[dto.Booking](t, rec)

	rec = do(t, router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/pay", "guest", map[string]string{"payment_token": "decline-me"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(errkind.ExternalServiceFailure), decode[apiError](t, rec).Error.Kind)

	rec = do(t, router, http.MethodGet, "/api/v1/me/bookings", "guest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[dto.BookingCollection](t, rec)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "UNPAID", mine.Items[0].PaymentStatus)
}

func TestWritesRequireIdentity(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/api/v1/listings", "", map[string]any{"title": "x", "unit_price": "1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[apiError](t, rec).Error.Kind)

	rec = do(t, router, http.MethodGet, "/api/v1/me/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router := newTestRouter(t, func() error { return errors.New("database down") })

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/readyz", "", nil).Code)

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestOwnerRepricesListingOverHTTP(t *testing.T) {
	router := newTestRouter(t, nil)
	listingID := createOpenListing(t, router, "host", true)

	rec := do(t, router, http.MethodPost, "/api/v1/listings/"+listingID+"/bookings", "guest", map[string]string{
		"start_date": "2026-10-20",
		"end_date":   "2026-10-23",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPatch, "/api/v1/listings/"+listingID, "guest", map[string]string{"unit_price": "10"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPatch, "/api/v1/listings/"+listingID, "host", map[string]string{"unit_price": "99.99"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "99.99", decode[dto.Listing](t, rec).UnitPrice.Display)

	rec = do(t, router, http.MethodGet, "/api/v1/host/bookings?status=confirmed", "host", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	host := decode[dto.HostBookingCollection](t, rec)
	require.Len(t, host.Items, 1)
	assert.Equal(t, "361.50", host.Items[0].Total.Display)

	rec = do(t, router, http.MethodGet, "/api/v1/listings/"+listingID+"/quote?start=2026-10-25&end=2026-10-27", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "199.98", decode[dto.Quote](t, rec).Total.Display)
}
