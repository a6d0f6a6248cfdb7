package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
type Metrics struct {
	ConsentsGranted     *prometheus.CounterVec
	ConsentsRevoked     prometheus.Counter
	ActiveConsentsTotal prometheus.Gauge
	ConsentChecks       *prometheus.CounterVec
	ConsentGrantLatency prometheus.Histogram
	MirrorAttempts      *prometheus.CounterVec

	// Performance metrics
	StoreOperationLatency *prometheus.HistogramVec
	RecordsPerHolder      prometheus.Histogram
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		ConsentsGranted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_consents_granted_total",
			Help: "Total number of consent grants, labeled by whether an existing record was replaced",
		}, []string{"replaced"}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dim_consents_revoked_total",
			Help: "Total number of consent records removed by revocation",
		}),
		ActiveConsentsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dim_active_consents_total",
			Help: "Current number of consent records held by this agent",
		}),
		ConsentChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_consent_checks_total",
			Help: "Consent checks by data category and result",
		}, []string{"category", "result"}),
		ConsentGrantLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dim_consent_grant_latency_seconds",
			Help:    "Latency of the local part of consent grants in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		MirrorAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_consent_mirror_attempts_total",
			Help: "Blob mirror attempts for consent documents by result (success, failure, skipped)",
		}, []string{"result"}),

		StoreOperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dim_consent_store_operation_latency_seconds",
			Help:    "Latency of consent store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		RecordsPerHolder: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dim_consent_records_per_holder",
			Help:    "Distribution of consent record counts returned by List",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

func (m *Metrics) IncrementConsentsGranted(replaced bool) {
	label := "false"
	if replaced {
		label = "true"
	}
	m.ConsentsGranted.WithLabelValues(label).Inc()
}

func (m *Metrics) IncrementConsentsRevoked() {
	m.ConsentsRevoked.Inc()
}

func (m *Metrics) IncrementConsentCheck(category string, granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	m.ConsentChecks.WithLabelValues(category, result).Inc()
}

func (m *Metrics) IncrementActiveConsents(count float64) {
	m.ActiveConsentsTotal.Add(count)
}

func (m *Metrics) DecrementActiveConsents(count float64) {
	m.ActiveConsentsTotal.Sub(count)
}

func (m *Metrics) ObserveConsentGrantLatency(durationSeconds float64) {
	m.ConsentGrantLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementMirrorAttempt(result string) {
	m.MirrorAttempts.WithLabelValues(result).Inc()
}

// ObserveStoreOperationLatency records the latency of a store operation.
func (m *Metrics) ObserveStoreOperationLatency(operation string, durationSeconds float64) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

// ObserveRecordsPerHolder records the number of consent records for a holder.
func (m *Metrics) ObserveRecordsPerHolder(count float64) {
	m.RecordsPerHolder.Observe(count)
}
