package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the chunk cache and
// the replay scheduler. Use these keys consistently across all log
// statements for log aggregation and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Operation metadata
	KeyOperation  = "operation"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"

	// Chunk cache
	KeyObjectName    = "object_name"
	KeyObjectID      = "object_id"
	KeyBucketIndex   = "bucket_index"
	KeyOffset        = "offset"
	KeySize          = "size"
	KeyCacheHit      = "cache_hit"
	KeyCacheSize     = "cache_size"
	KeyCacheCapacity = "cache_capacity"
	KeyEvicted       = "evicted"

	// Replay scheduler
	KeyWorkerID  = "worker_id"
	KeyLane      = "lane"
	KeyTimestamp = "timestamp"
	KeyAttempt   = "attempt"
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Operation returns a slog.Attr for the cache/scheduler operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ObjectName returns a slog.Attr for the backing object name
func ObjectName(name string) slog.Attr {
	return slog.String(KeyObjectName, name)
}

// ObjectID returns a slog.Attr for the backing object id
func ObjectID(id uint64) slog.Attr {
	return slog.Uint64(KeyObjectID, id)
}

// BucketIndex returns a slog.Attr for the hash bucket index
func BucketIndex(idx uint32) slog.Attr {
	return slog.Uint64(KeyBucketIndex, uint64(idx))
}

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Size returns a slog.Attr for a byte size
func Size(size uint64) slog.Attr {
	return slog.Uint64(KeySize, size)
}

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheSize returns a slog.Attr for current cache size in bytes
func CacheSize(size uint64) slog.Attr {
	return slog.Uint64(KeyCacheSize, size)
}

// CacheCapacity returns a slog.Attr for the configured cache capacity
func CacheCapacity(capacity uint64) slog.Attr {
	return slog.Uint64(KeyCacheCapacity, capacity)
}

// Evicted returns a slog.Attr for number of chunks evicted/invalidated
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// WorkerID returns a slog.Attr for the replay worker index
func WorkerID(id int) slog.Attr {
	return slog.Int(KeyWorkerID, id)
}

// Lane returns a slog.Attr for the replay lane index
func Lane(lane uint32) slog.Attr {
	return slog.Uint64(KeyLane, uint64(lane))
}

// Timestamp returns a slog.Attr for a logical replay timestamp
func Timestamp(ts uint64) slog.Attr {
	return slog.Uint64(KeyTimestamp, ts)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
