package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential lifecycle operations.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	LedgerLatency *prometheus.HistogramVec
}

// New registers and returns credential lifecycle collectors.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_credential_operations_total",
			Help: "Lifecycle operations that completed, labeled by operation and outcome",
		}, []string{"operation", "outcome"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_credential_operation_failures_total",
			Help: "Lifecycle operations that failed, labeled by operation and error code",
		}, []string{"operation", "code"}),
		LedgerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dim_credential_ledger_call_seconds",
			Help:    "Latency of ledger calls made by the lifecycle service",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementOperation(operation, outcome string) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncrementFailure(operation, code string) {
	m.Failures.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveLedgerLatency(operation string, seconds float64) {
	m.LedgerLatency.WithLabelValues(operation).Observe(seconds)
}
