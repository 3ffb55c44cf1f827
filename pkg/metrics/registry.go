// Package metrics manages the Prometheus registry and the /metrics endpoint.
//
// Metrics are opt-in. When the registry is never initialized, IsEnabled
// reports false and callers skip collector construction entirely, so a
// disabled deployment pays no bookkeeping cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var registry *prometheus.Registry

// InitRegistry creates the process-wide registry and attaches the standard
// Go runtime and process collectors. Call once at startup, before any
// collector is constructed. Not safe for concurrent use with IsEnabled.
func InitRegistry() {
	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}
