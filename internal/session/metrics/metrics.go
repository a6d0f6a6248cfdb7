package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for wallet login sessions.
type Metrics struct {
	ChallengesIssued prometheus.Counter
	SessionsCreated  prometheus.Counter
	SessionsRevoked  prometheus.Counter
	AuthFailures     *prometheus.CounterVec
	ExpiredSwept     prometheus.Counter
	LoginLatency     prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ChallengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dim_session_challenges_issued_total",
			Help: "Total number of login challenges issued",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dim_sessions_created_total",
			Help: "Total number of sessions created from a verified wallet signature",
		}),
		SessionsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dim_sessions_revoked_total",
			Help: "Total number of sessions revoked by logout",
		}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dim_session_auth_failures_total",
			Help: "Failed login verifications by reason",
		}, []string{"reason"}),
		ExpiredSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dim_sessions_expired_swept_total",
			Help: "Expired sessions removed by the cleanup worker",
		}),
		LoginLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dim_session_login_latency_seconds",
			Help:    "Latency of challenge verification in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementChallengesIssued() {
	m.ChallengesIssued.Inc()
}

func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncrementSessionsRevoked() {
	m.SessionsRevoked.Inc()
}

func (m *Metrics) IncrementAuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddExpiredSwept(n int) {
	m.ExpiredSwept.Add(float64(n))
}

func (m *Metrics) ObserveLoginLatency(durationSeconds float64) {
	m.LoginLatency.Observe(durationSeconds)
}
