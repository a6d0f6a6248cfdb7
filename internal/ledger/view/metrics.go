package view

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_ledger_view_lookups_total",
		Help: "Ledger view lookups, labeled by entity and result (hit, miss, error)",
	}, []string{"entity", "result"})
	invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_ledger_view_invalidations_total",
		Help: "Ledger view invalidations, labeled by entity",
	}, []string{"entity"})
)
