package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/chunkcache/internal/logger"
	"github.com/marmos91/chunkcache/pkg/config"
	"github.com/marmos91/chunkcache/pkg/replay"
	"github.com/spf13/cobra"
)

var (
	replayConflictPct   int
	replayStopTimestamp uint64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run the predictable-replay scheduler against a synthetic engine",
	Long: `replay builds a scheduler from the loaded configuration's replay
section and drives it with worker_count goroutines against a synthetic
in-memory engine until stop_timestamp is reached, printing final
timestamps and commit counts.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&replayConflictPct, "conflict-pct", 0, "percent chance (0-100) a worker's Execute reports a write conflict")
	replayCmd.Flags().Uint64Var(&replayStopTimestamp, "stop-timestamp", 2000, "stop once stable_timestamp reaches this value (overrides config when the config's stop_timestamp is unset)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	startMetricsServer(cfg)

	stopTS := cfg.Replay.StopTimestamp
	if stopTS == 0 {
		stopTS = replayStopTimestamp
	}

	scheduler, err := replay.NewScheduler(replay.SchedulerConfig{
		LaneCount:     cfg.Replay.LaneCount,
		WorkerCount:   cfg.Replay.WorkerCount,
		DataSeed:      cfg.Replay.DataSeed,
		ExtraSeed:     cfg.Replay.ExtraSeed,
		StopTimestamp: stopTS,
		MaxRows:       cfg.Replay.MaxRows,
	})
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}

	engine := newFakeEngine(replayConflictPct)
	sink := &fakeCheckpointSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	advancer := replay.NewAdvancer(scheduler, sink, cfg.Replay.StableAdvanceInterval, false)
	advancer.Start(ctx)

	scheduler.ReplayRunBegin()

	var wg sync.WaitGroup
	var commits, rollbacks int64
	var mu sync.Mutex

	for i := 0; i < cfg.Replay.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w := scheduler.NewWorker(id)
			ntries := 0

			for {
				if scheduler.ReplayLoopBegin(w) {
					return
				}

				dataRNG, extraRNG := scheduler.SeedRNGs(w)
				readTS := scheduler.ReplayReadTS(w)
				prepareTS := scheduler.ReplayPrepareTS(w)
				key := scheduler.ReplayAdjustKey(w, dataRNG.Uint64())

				if err := engine.Begin(readTS, prepareTS); err != nil {
					logger.Warn("replay worker begin failed", logger.WorkerID(id), logger.Err(err))
					// Retain the timestamp and lane for retry; leaving the
					// worker's replay state untouched would trip the
					// scheduler's loop-top integrity check.
					scheduler.ReplayRollback(w)
					continue
				}

				if err := engine.Execute(key, dataRNG, extraRNG); err != nil {
					engine.Rollback()
					scheduler.ReplayRollback(w)
					ntries++
					mu.Lock()
					rollbacks++
					mu.Unlock()
					if cfg.Replay.PauseAfterRollback {
						scheduler.ReplayPauseAfterRollback(w, ntries)
					}
					continue
				}

				commitTS := scheduler.ReplayCommitTS(w)
				if err := engine.Commit(commitTS); err != nil {
					logger.Warn("replay worker commit failed", logger.WorkerID(id), logger.Err(err))
					engine.Rollback()
					scheduler.ReplayRollback(w)
					continue
				}

				ntries = 0
				scheduler.ReplayCommitted(w)
				mu.Lock()
				commits++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	scheduler.ReplayRunEnd()
	cancel()
	advancer.Stop()

	oldest, stable := sink.snapshot()
	fmt.Printf("global_timestamp=%d oldest=%d stable=%d commits=%d rollbacks=%d\n",
		scheduler.GlobalTimestamp(), oldest, stable, commits, rollbacks)
	return nil
}
