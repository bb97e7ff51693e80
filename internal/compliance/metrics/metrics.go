package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance engine.
type Metrics struct {
	// Decisions by kind (transfer, mint) and reason
	Decisions *prometheus.CounterVec

	// Rule-chain evaluation latency including identity lookups
	EvaluateLatency prometheus.Histogram
}

// New registers the compliance metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the compliance metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rwaledger_compliance_decisions_total",
			Help: "Total compliance decisions by kind and reason",
		}, []string{"kind", "reason"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rwaledger_compliance_evaluate_duration_seconds",
			Help:    "Duration of compliance evaluation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}
}

// IncrementDecision records a compliance decision.
func (m *Metrics) IncrementDecision(kind, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(kind, reason).Inc()
	}
}

// ObserveEvaluateLatency records the evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
