package obs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentspace/internal/app/policies"
)

// Metrics implements policies.BookingMetrics with Prometheus collectors.
type Metrics struct {
	registry      *prometheus.Registry
	reserved      *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	payments      *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	reservation   prometheus.Histogram
}

// NewMetrics registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentspace_bookings_reserved_total",
			Help: "Bookings created, by initial status",
		}, []string{"status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentspace_booking_rejections_total",
			Help: "Rejected reservation attempts, by error kind",
		}, []string{"kind"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentspace_payments_total",
			Help: "Payment attempts, by result",
		}, []string{"result"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentspace_cancellations_total",
			Help: "Cancellation attempts, by result",
		}, []string{"result"}),
		reservation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentspace_reservation_duration_seconds",
			Help:    "Time spent in the reservation transaction",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.reserved, m.rejections, m.payments, m.cancellations, m.reservation,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) BookingReserved(status string)       { m.reserved.WithLabelValues(status).Inc() }
func (m *Metrics) BookingRejected(kind string)         { m.rejections.WithLabelValues(kind).Inc() }
func (m *Metrics) PaymentProcessed(result string)      { m.payments.WithLabelValues(result).Inc() }
func (m *Metrics) CancellationProcessed(result string) { m.cancellations.WithLabelValues(result).Inc() }
func (m *Metrics) ObserveReservation(d time.Duration)  { m.reservation.Observe(d.Seconds()) }

// Registry exposes the collectors, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

var _ policies.BookingMetrics = (*Metrics)(nil)
