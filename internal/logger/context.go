package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context for the chunk cache
// and replay scheduler.
type LogContext struct {
	TraceID     string    // OpenTelemetry trace ID
	SpanID      string    // OpenTelemetry span ID
	Operation   string    // cache/scheduler operation: lookup_or_reserve, publish, commit, rollback, ...
	ObjectName  string    // backing object name (cache operations)
	BucketIndex int       // bucket index (cache operations)
	WorkerID    int       // worker index (replay operations)
	Lane        uint32    // lane index (replay operations)
	StartTime   time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given operation name.
func NewLogContext(operation string) *LogContext {
	return &LogContext{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:     lc.TraceID,
		SpanID:      lc.SpanID,
		Operation:   lc.Operation,
		ObjectName:  lc.ObjectName,
		BucketIndex: lc.BucketIndex,
		WorkerID:    lc.WorkerID,
		Lane:        lc.Lane,
		StartTime:   lc.StartTime,
	}
}

// WithOperation returns a copy with the operation set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithObject returns a copy with the object name and bucket index set
func (lc *LogContext) WithObject(name string, bucketIndex int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ObjectName = name
		clone.BucketIndex = bucketIndex
	}
	return clone
}

// WithWorker returns a copy with the worker/lane identifiers set
func (lc *LogContext) WithWorker(workerID int, lane uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.WorkerID = workerID
		clone.Lane = lane
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
