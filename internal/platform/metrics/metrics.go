// Package metrics exposes process-level Prometheus collectors and the
// scrape handler. Domain packages register their own collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dim_build_info",
		Help: "Build and deployment information, always 1",
	}, []string{"version", "environment", "ledger_mode", "events_mode"})

	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dim_dependency_up",
		Help: "Whether a backing dependency answered its last health check",
	}, []string{"dependency"})
)

// BuildInfo records the running configuration.
func BuildInfo(version, environment, ledgerMode, eventsMode string) {
	buildInfo.WithLabelValues(version, environment, ledgerMode, eventsMode).Set(1)
}

// DependencyUp records the outcome of a dependency health check.
func DependencyUp(name string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	dependencyUp.WithLabelValues(name).Set(v)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
