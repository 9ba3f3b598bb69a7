package metrics

// ReplayMetrics is the nil-safe observability hook the replay scheduler
// reports into, the counterpart to CacheMetrics for the replay side.
type ReplayMetrics interface {
	RecordCommit(lane uint32)
	RecordRollback(lane uint32, attempt int)
	RecordPickRetry()
	RecordLaneOccupancy(inUse int, total int)
	RecordStableLag(lag uint64)
}

// newPrometheusReplayMetrics is implemented in pkg/metrics/prometheus/replay.go.
var newPrometheusReplayMetrics func() ReplayMetrics

// RegisterReplayMetricsConstructor registers the Prometheus replay metrics
// constructor. Called from pkg/metrics/prometheus/replay.go's init.
func RegisterReplayMetricsConstructor(constructor func() ReplayMetrics) {
	newPrometheusReplayMetrics = constructor
}

// NewReplayMetrics returns a Prometheus-backed ReplayMetrics, or nil if
// metrics are not enabled.
func NewReplayMetrics() ReplayMetrics {
	if !IsEnabled() || newPrometheusReplayMetrics == nil {
		return nil
	}
	return newPrometheusReplayMetrics()
}
