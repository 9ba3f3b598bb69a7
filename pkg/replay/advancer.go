package replay

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/chunkcache/internal/logger"
)

// defaultStableAdvanceInterval is the advancer's cadence while workers run.
const defaultStableAdvanceInterval = 15 * time.Second

// Advancer is the stable-timestamp advancer: a single periodic task that
// recomputes maximum_committed from the lane table and pushes oldest/
// stable timestamps forward.
type Advancer struct {
	scheduler *Scheduler
	sink      CheckpointSink
	interval  time.Duration
	allowLag  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdvancer returns an Advancer pushing s's checkpoints into sink every
// interval (0 selects defaultStableAdvanceInterval). allowLag enables the
// halfway-catchup rule on ordinary ticks; predictable replay runs want
// stable to track committed tightly, so callers running replay should
// pass allowLag=false.
func NewAdvancer(s *Scheduler, sink CheckpointSink, interval time.Duration, allowLag bool) *Advancer {
	if interval <= 0 {
		interval = defaultStableAdvanceInterval
	}
	return &Advancer{scheduler: s, sink: sink, interval: interval, allowLag: allowLag}
}

// Start begins the background advancer goroutine.
func (a *Advancer) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go a.run()
}

// Stop gracefully stops the advancer, performing one final un-lagged
// advance pass (allow_lag=false, final=true) before returning.
func (a *Advancer) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

func (a *Advancer) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			a.advanceOnce(false, true)
			return
		case <-ticker.C:
			a.advanceOnce(a.allowLag, false)
		}
	}
}

// advanceOnce computes a fresh (oldest, stable) checkpoint pair and pushes it.
func (a *Advancer) advanceOnce(allowLag, final bool) {
	m := a.scheduler.MaximumCommitted()

	oldestPrev := a.scheduler.OldestTimestamp()
	stablePrev := a.scheduler.StableTimestamp()

	oldest := m
	if allowLag && !final {
		oldest = oldestPrev + (m-oldestPrev)/2
	}
	stable := m

	if oldest < oldestPrev || stable < stablePrev {
		panic(&ReplayIntegrityError{
			Invariant: "oldest/stable timestamps are non-decreasing",
			Detail:    "advancer computed a checkpoint older than the previous one",
		})
	}

	a.scheduler.pushCheckpoints(oldest, stable)

	if a.sink != nil {
		if err := a.sink.SetCheckpoints(oldest, stable); err != nil {
			logger.Warn("replay advancer: failed to push checkpoints", logger.Err(err))
			return
		}
	}
	if a.scheduler.metrics != nil {
		a.scheduler.metrics.RecordStableLag(a.scheduler.GlobalTimestamp() - stable)
	}
}
