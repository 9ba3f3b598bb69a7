package prometheus

import (
	"time"

	"github.com/marmos91/chunkcache/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterCacheMetricsConstructor(newCacheMetrics)
}

// cacheMetrics is the Prometheus implementation of metrics.CacheMetrics.
type cacheMetrics struct {
	hits            prometheus.Counter
	misses          prometheus.Counter
	allocations     prometheus.Counter
	allocationBytes prometheus.Histogram
	removals        prometheus.Counter
	removalBytes    prometheus.Histogram
	lookupDuration  prometheus.Histogram
	publishDuration prometheus.Histogram
	bytesUsed       prometheus.Gauge
}

// newCacheMetrics creates a new Prometheus-backed CacheMetrics instance,
// registered against the package-level registry (metrics.GetRegistry).
func newCacheMetrics() metrics.CacheMetrics {
	reg := metrics.GetRegistry()

	sizeBuckets := []float64{
		4096,            // 4KiB
		65536,           // 64KiB
		1 << 20,         // 1MiB
		4 << 20,         // 4MiB - default chunk size
		16 << 20,        // 16MiB
		64 << 20,        // 64MiB
	}
	latencyBuckets := []float64{
		0.001, 0.01, 0.1, 1, 5, 10, 50, 100, 500, // milliseconds
	}

	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "chunkcache_hits_total",
			Help: "Total number of LookupOrReserve calls satisfied from a cached chunk.",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "chunkcache_misses_total",
			Help: "Total number of LookupOrReserve calls not satisfied from a cached chunk.",
		}),
		allocations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "chunkcache_allocations_total",
			Help: "Total number of chunks admitted and allocated.",
		}),
		allocationBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "chunkcache_allocation_bytes",
			Help:    "Distribution of allocated chunk sizes.",
			Buckets: sizeBuckets,
		}),
		removals: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "chunkcache_removals_total",
			Help: "Total number of chunks removed via Abandon or Invalidate.",
		}),
		removalBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "chunkcache_removal_bytes",
			Help:    "Distribution of removed chunk sizes.",
			Buckets: sizeBuckets,
		}),
		lookupDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "chunkcache_lookup_duration_milliseconds",
			Help:    "Duration of LookupOrReserve calls in milliseconds.",
			Buckets: latencyBuckets,
		}),
		publishDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "chunkcache_publish_duration_milliseconds",
			Help:    "Duration of Publish calls in milliseconds.",
			Buckets: latencyBuckets,
		}),
		bytesUsed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "chunkcache_bytes_used",
			Help: "Current total size of valid and reserved chunk buffers.",
		}),
	}
}

func (m *cacheMetrics) RecordHit()  { m.hits.Inc() }
func (m *cacheMetrics) RecordMiss() { m.misses.Inc() }

func (m *cacheMetrics) RecordAllocation(size uint64) {
	m.allocations.Inc()
	m.allocationBytes.Observe(float64(size))
}

func (m *cacheMetrics) RecordRemoval(size uint64) {
	m.removals.Inc()
	m.removalBytes.Observe(float64(size))
}

func (m *cacheMetrics) ObserveLookupDuration(d time.Duration) {
	m.lookupDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *cacheMetrics) ObservePublishDuration(d time.Duration) {
	m.publishDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *cacheMetrics) RecordBytesUsed(bytesUsed uint64) {
	m.bytesUsed.Set(float64(bytesUsed))
}
