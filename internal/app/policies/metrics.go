package policies

import "time"

// BookingMetrics receives outcome counters from the booking handlers.
type BookingMetrics interface {
	BookingReserved(status string)
	BookingRejected(kind string)
	PaymentProcessed(result string)
	CancellationProcessed(result string)
	ObserveReservation(d time.Duration)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) BookingReserved(string)           {}
func (NopMetrics) BookingRejected(string)           {}
func (NopMetrics) PaymentProcessed(string)          {}
func (NopMetrics) CancellationProcessed(string)     {}
func (NopMetrics) ObserveReservation(time.Duration) {}

// MetricsOrNop returns m, or NopMetrics when m is nil.
func MetricsOrNop(m BookingMetrics) BookingMetrics {
	if m == nil {
		return NopMetrics{}
	}
	return m
}
