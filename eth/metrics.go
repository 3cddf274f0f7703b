package eth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts transfer outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	broadcasts          *prometheus.CounterVec
	confirmations       *prometheus.CounterVec
	confirmationSeconds prometheus.Histogram
}

// NewMetrics registers the wallet collectors on reg. With a nil reg the
// collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghost_wallet",
			Name:      "broadcasts_total",
			Help:      "Transaction submissions by outcome.",
		}, []string{"outcome"}),
		confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghost_wallet",
			Name:      "confirmations_total",
			Help:      "Watched transactions by final status.",
		}, []string{"status"}),
		confirmationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ghost_wallet",
			Name:      "confirmation_seconds",
			Help:      "Time from watch start to receipt.",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		}),
	}
}

func (m *Metrics) observeBroadcast(outcome string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeConfirmation(status string, seconds float64) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(status).Inc()
	if seconds > 0 {
		m.confirmationSeconds.Observe(seconds)
	}
}
