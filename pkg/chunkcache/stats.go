package chunkcache

import "time"

// Stats returns a point-in-time snapshot of cache counters.
func (c *Cache) Stats() Stats {
	var bytesUsed uint64
	if c.alloc != nil {
		bytesUsed = c.alloc.bytesUsed.Load()
	}
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		BytesUsed:   bytesUsed,
		Allocations: c.allocations.Load(),
		Removals:    c.removals.Load(),
	}
}

// Metrics is the nil-safe observability hook the cache reports into. A
// caller wires a concrete implementation (e.g. Prometheus-backed) via
// SetMetrics; leaving it unset disables reporting entirely.
type Metrics interface {
	RecordHit()
	RecordMiss()
	RecordAllocation(size uint64)
	RecordRemoval(size uint64)
	ObserveLookupDuration(d time.Duration)
	ObservePublishDuration(d time.Duration)
	RecordBytesUsed(bytesUsed uint64)
}
