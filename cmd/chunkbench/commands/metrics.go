package commands

import (
	"net/http"
	"strconv"

	"github.com/marmos91/chunkcache/internal/logger"
	"github.com/marmos91/chunkcache/pkg/config"
	"github.com/marmos91/chunkcache/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Import for their init() registration with pkg/metrics.
	_ "github.com/marmos91/chunkcache/pkg/metrics/prometheus"
)

// startMetricsServer does nothing when metrics are disabled; otherwise it
// initializes the Prometheus registry and serves it over HTTP in the
// background. Metrics are brought up before
// the cache or scheduler so no early activity goes unrecorded.
func startMetricsServer(cfg *config.Config) {
	if !cfg.Metrics.Enabled {
		return
	}

	reg := metrics.InitRegistry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	addr := ":" + strconv.Itoa(cfg.Metrics.Port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped", logger.Err(err))
		}
	}()
	logger.Info("metrics enabled", "addr", addr)
}
