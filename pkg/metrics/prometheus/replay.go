package prometheus

import (
	"strconv"

	"github.com/marmos91/chunkcache/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterReplayMetricsConstructor(newReplayMetrics)
}

// replayMetrics is the Prometheus implementation of metrics.ReplayMetrics.
type replayMetrics struct {
	commits       *prometheus.CounterVec
	rollbacks     *prometheus.CounterVec
	rollbackTries prometheus.Histogram
	pickRetries   prometheus.Counter
	laneOccupancy prometheus.Gauge
	laneTotal     prometheus.Gauge
	stableLag     prometheus.Gauge
}

func newReplayMetrics() metrics.ReplayMetrics {
	reg := metrics.GetRegistry()

	return &replayMetrics{
		commits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "chunkcache_replay_commits_total",
			Help: "Total number of replay commit-path completions, by lane.",
		}, []string{"lane"}),
		rollbacks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "chunkcache_replay_rollbacks_total",
			Help: "Total number of replay rollbacks, by lane.",
		}, []string{"lane"}),
		rollbackTries: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "chunkcache_replay_rollback_attempts",
			Help:    "Worker's running rollback count, observed once at each rollback.",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		pickRetries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "chunkcache_replay_pick_retries_total",
			Help: "Total number of Pick-timestamp lane collisions skipped.",
		}),
		laneOccupancy: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "chunkcache_replay_lanes_in_use",
			Help: "Current number of lanes held by a worker.",
		}),
		laneTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "chunkcache_replay_lanes_total",
			Help: "Configured lane table size (L).",
		}),
		stableLag: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "chunkcache_replay_stable_lag",
			Help: "global_timestamp minus stable_timestamp.",
		}),
	}
}

func (m *replayMetrics) RecordCommit(lane uint32) {
	m.commits.WithLabelValues(laneLabel(lane)).Inc()
}

func (m *replayMetrics) RecordRollback(lane uint32, attempt int) {
	m.rollbacks.WithLabelValues(laneLabel(lane)).Inc()
	m.rollbackTries.Observe(float64(attempt))
}

func (m *replayMetrics) RecordPickRetry() {
	m.pickRetries.Inc()
}

func (m *replayMetrics) RecordLaneOccupancy(inUse int, total int) {
	m.laneOccupancy.Set(float64(inUse))
	m.laneTotal.Set(float64(total))
}

func (m *replayMetrics) RecordStableLag(lag uint64) {
	m.stableLag.Set(float64(lag))
}

// laneLabel renders a lane index as a Prometheus label value.
func laneLabel(lane uint32) string {
	return strconv.FormatUint(uint64(lane), 10)
}
