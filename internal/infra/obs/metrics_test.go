package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountOutcomes(t *testing.T) {
	m := NewMetrics()
	m.BookingReserved("CONFIRMED")
	m.BookingReserved("CONFIRMED")
	m.BookingRejected("CONFLICT")
	m.PaymentProcessed("success")
	m.ObserveReservation(20 * time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `rentspace_bookings_reserved_total{status="CONFIRMED"} 2`)
	assert.Contains(t, body, `rentspace_booking_rejections_total{kind="CONFLICT"} 1`)
	assert.Contains(t, body, `rentspace_payments_total{result="success"} 1`)
	assert.Contains(t, body, "rentspace_reservation_duration_seconds_count 1")
	assert.NotContains(t, body, "rentspace_cancellations_total{")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", m.Handler())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.BookingReserved("PENDING")

	body := scrape(t, m)
	assert.Contains(t, body, `rentspace_bookings_reserved_total{status="PENDING"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("Warning").String())
	assert.Equal(t, "ERROR", ParseLevel("error").String())
	assert.Equal(t, "INFO", ParseLevel("verbose").String())
}
