package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts journal events the async buffer could not keep.
type Metrics struct {
	Dropped prometheus.Counter
}

// NewMetrics registers the publisher metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Dropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rwaledger_audit_dropped_total",
			Help: "Total journal events dropped because the async buffer was full",
		}),
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
