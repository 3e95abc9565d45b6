package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Observer is the process-wide metrics sink.
var Observer = &Metrics{prometheus: NewPrometheusMetrics()}

func init() {
	prometheus.MustRegister(
		Observer.prometheus.PriceTicks,
		Observer.prometheus.Fills,
		Observer.prometheus.StopTriggers,
		Observer.prometheus.Reconciliations,
		Observer.prometheus.UniverseSize,
		Observer.prometheus.WalletBalance,
	)
}

type Metrics struct {
	prometheus Prometheus
}

// IncrementTick counts a processed price update for the symbol.
func (m *Metrics) IncrementTick(symbol string) {
	m.prometheus.PriceTicks.WithLabelValues(symbol).Inc()
}

// IncrementFill counts an applied fill by symbol and side.
func (m *Metrics) IncrementFill(symbol, side string) {
	m.prometheus.Fills.WithLabelValues(symbol, side).Inc()
}

// IncrementStopTrigger counts a trailing-stop or exit trigger by reason.
func (m *Metrics) IncrementStopTrigger(symbol, reason string) {
	m.prometheus.StopTriggers.WithLabelValues(symbol, reason).Inc()
}

// IncrementReconciliation counts a reconciliation pass by result.
func (m *Metrics) IncrementReconciliation(result string) {
	m.prometheus.Reconciliations.WithLabelValues(result).Inc()
}

// SetUniverseSize records the size of the published symbol set.
func (m *Metrics) SetUniverseSize(n int) {
	m.prometheus.UniverseSize.Set(float64(n))
}

// SetWalletBalance records the current wallet balance.
func (m *Metrics) SetWalletBalance(balance float64) {
	m.prometheus.WalletBalance.Set(balance)
}
