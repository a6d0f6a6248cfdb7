package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for disclosure operations.
type Metrics struct {
	Disclosures   *prometheus.CounterVec
	ProofsSigned  prometheus.Counter
	Verifications *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	SignLatency   prometheus.Histogram
}

// New registers and returns disclosure collectors.
func New() *Metrics {
	return &Metrics{
		Disclosures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_disclosures_total",
			Help: "Disclosure requests by outcome (disclosed, needs_consent)",
		}, []string{"status"}),
		ProofsSigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dim_disclosure_proofs_signed_total",
			Help: "Disclosure proofs signed by the agent key",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_disclosure_verifications_total",
			Help: "Proof verifications by result code",
		}, []string{"result"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_disclosure_proof_cache_lookups_total",
			Help: "Proof cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		SignLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dim_disclosure_sign_latency_seconds",
			Help:    "Time spent hashing and signing a disclosure proof",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementDisclosure(status string) {
	m.Disclosures.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveProofSigned(durationSeconds float64) {
	m.ProofsSigned.Inc()
	m.SignLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementVerification(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}
