package metrics

import "time"

// CacheMetrics is the nil-safe observability hook chunkcache.Cache reports
// into. Concrete cache implementations accept this interface; a nil value
// disables metrics entirely with zero overhead.
type CacheMetrics interface {
	RecordHit()
	RecordMiss()
	RecordAllocation(size uint64)
	RecordRemoval(size uint64)
	ObserveLookupDuration(d time.Duration)
	ObservePublishDuration(d time.Duration)
	RecordBytesUsed(bytesUsed uint64)
}

// newPrometheusCacheMetrics is implemented in pkg/metrics/prometheus/cache.go.
// The indirection avoids an import cycle between metrics and
// metrics/prometheus while keeping this package's public API concrete.
var newPrometheusCacheMetrics func() CacheMetrics

// RegisterCacheMetricsConstructor registers the Prometheus cache metrics
// constructor. Called from pkg/metrics/prometheus/cache.go's init.
func RegisterCacheMetricsConstructor(constructor func() CacheMetrics) {
	newPrometheusCacheMetrics = constructor
}

// NewCacheMetrics returns a Prometheus-backed CacheMetrics, or nil if
// metrics are not enabled (InitRegistry was never called).
func NewCacheMetrics() CacheMetrics {
	if !IsEnabled() || newPrometheusCacheMetrics == nil {
		return nil
	}
	return newPrometheusCacheMetrics()
}
