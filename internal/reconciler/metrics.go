package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_reconciler_events_total",
		Help: "Ledger events seen by the reconciler, labeled by kind and outcome (applied, skipped, failed)",
	}, []string{"kind", "outcome"})
	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_reconciler_rejected_messages_total",
		Help: "Event messages that could not be decoded, labeled by source",
	}, []string{"source"})
	lastSequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dim_reconciler_last_sequence",
		Help: "Highest ledger event sequence handled",
	})
	watchedIssuers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dim_reconciler_watched_issuers",
		Help: "Issuers of the local holder's credentials whose status is tracked",
	})
)
