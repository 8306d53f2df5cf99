// Package metrics provides Prometheus instrumentation for the catalog, the
// enrichment pipeline, and the HTTP API.
//
// Metrics are opt-in: when InitRegistry is never called every constructor
// returns nil, and all recording methods are nil-safe no-ops, so disabled
// metrics cost nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registryMu sync.RWMutex
	registry   *prometheus.Registry
)

// InitRegistry creates the process-wide metrics registry with the standard
// Go runtime and process collectors. Calling it again is a no-op.
func InitRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
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
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}
