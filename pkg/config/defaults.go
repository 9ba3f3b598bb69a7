package config

import (
	"strings"
	"time"

	"github.com/marmos91/chunkcache/internal/bytesize"
	"github.com/marmos91/chunkcache/pkg/chunkcache"
)

// defaultLaneCount is L, the default lane table size: a power of two.
// 1024 gives ample contention headroom for a benchmark-sized worker pool
// while staying a small, cache-friendly table.
const defaultLaneCount = 1024

// defaultWorkerCount is the default replay worker pool size.
const defaultWorkerCount = 8

// defaultStableAdvanceInterval matches the "every 15 seconds while
// workers run" cadence outside predictable replay. Predictable-replay
// callers, which need stable to track committed much more tightly,
// should override this with a much higher frequency.
const defaultStableAdvanceInterval = 15 * time.Second

// ApplyDefaults fills any unspecified configuration fields with sensible
// defaults. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyChunkCacheDefaults(&cfg.ChunkCache)
	applyReplayDefaults(&cfg.Replay)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults. Port only matters when
// metrics are enabled (opt-in).
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyChunkCacheDefaults sets chunk-cache defaults for the keys callers
// leave unspecified.
func applyChunkCacheDefaults(cfg *ChunkCacheConfig) {
	if cfg.Type == "" {
		cfg.Type = "dram"
	}
	if cfg.HashSize == 0 {
		cfg.HashSize = chunkcache.DefaultHash
	}
	if cfg.DefaultChunkSize == 0 {
		cfg.DefaultChunkSize = bytesize.ByteSize(chunkcache.DefaultChunkSize)
	}
}

// applyReplayDefaults sets predictable-replay scheduler defaults.
func applyReplayDefaults(cfg *ReplayConfig) {
	if cfg.LaneCount == 0 {
		cfg.LaneCount = defaultLaneCount
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.StableAdvanceInterval == 0 {
		cfg.StableAdvanceInterval = defaultStableAdvanceInterval
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = 1 << 20
	}
}

// GetDefaultConfig returns a complete configuration with every field set
// to its default value.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
