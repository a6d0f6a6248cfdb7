package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_ratelimit_rejected_total",
		Help: "Requests refused because the client exceeded its window, labeled by route class",
	}, []string{"class"})
	storeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dim_ratelimit_store_errors_total",
		Help: "Admission checks that failed open because the store errored",
	})
)
