// Package metrics defines nil-safe observability interfaces for the chunk
// cache and the replay scheduler, with Prometheus-backed implementations
// behind an opt-in registry (pkg/metrics/prometheus).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryMu sync.Mutex
	registry   *prometheus.Registry
	enabled    bool
)

// InitRegistry enables metrics collection and creates the package-level
// Prometheus registry. Safe to call more than once; subsequent calls are a
// no-op if metrics are already enabled.
func InitRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	return enabled
}

// GetRegistry returns the package-level registry, initializing it first if
// necessary. Callers should check IsEnabled before constructing metrics so
// a disabled process pays no promauto registration cost.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}
