package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger.
type Metrics struct {
	// Mint and transfer attempts by outcome (applied or error code)
	Operations *prometheus.CounterVec

	// Outstanding supply in smallest units; lossy above 2^53
	TotalSupply prometheus.Gauge
}

// New registers the ledger metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the ledger metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rwaledger_ledger_operations_total",
			Help: "Total ledger mint and transfer attempts by outcome",
		}, []string{"operation", "outcome"}),

		TotalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rwaledger_ledger_total_supply",
			Help: "Outstanding supply in the smallest unit",
		}),
	}
}

// IncrementOperation records a mint or transfer attempt.
func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
	}
}

// SetTotalSupply publishes the current supply.
func (m *Metrics) SetTotalSupply(supply *big.Int) {
	if m != nil {
		f, _ := new(big.Float).SetInt(supply).Float64()
		m.TotalSupply.Set(f)
	}
}
