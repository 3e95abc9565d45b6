package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	PriceTicks      *prometheus.CounterVec
	Fills           *prometheus.CounterVec
	StopTriggers    *prometheus.CounterVec
	Reconciliations *prometheus.CounterVec
	UniverseSize    prometheus.Gauge
	WalletBalance   prometheus.Gauge
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		PriceTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trader",
				Name:      "price_ticks",
			}, []string{"symbol"}),
		Fills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trader",
				Name:      "fills",
			}, []string{"symbol", "side"}),
		StopTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trader",
				Name:      "stop_triggers",
			}, []string{"symbol", "reason"}),
		Reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trader",
				Name:      "reconciliations",
			}, []string{"result"}),
		UniverseSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "trader",
				Name:      "universe_size",
			}),
		WalletBalance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "trader",
				Name:      "wallet_balance",
			}),
	}
}
