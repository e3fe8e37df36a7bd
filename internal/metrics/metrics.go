package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "basket"

// Reservations holds the collectors updated by the reservation service.
type Reservations struct {
	operations *prometheus.CounterVec
	units      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewReservations creates the collectors and registers them with reg.
func NewReservations(reg prometheus.Registerer) (*Reservations, error) {
	m := &Reservations{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_operations_total",
			Help:      "Reservation operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_units_total",
			Help:      "Units moved between stock and baskets.",
		}, []string{"direction"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_duration_seconds",
			Help:      "Latency of reservation operations including the transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.units, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Reservations) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Reserved counts units taken out of stock into baskets.
func (m *Reservations) Reserved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.units.WithLabelValues("reserved").Add(float64(n))
}

// Returned counts units put back into stock.
func (m *Reservations) Returned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.units.WithLabelValues("returned").Add(float64(n))
}

func (m *Reservations) OperationCount(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}

func (m *Reservations) UnitCount(direction string) prometheus.Counter {
	return m.units.WithLabelValues(direction)
}
