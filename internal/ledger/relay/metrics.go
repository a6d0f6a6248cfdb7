package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var relayed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dim_ledger_events_relayed_total",
	Help: "Ledger events forwarded to brokers, labeled by result",
}, []string{"result"})
