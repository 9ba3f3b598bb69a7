package replay

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/marmos91/chunkcache/internal/logger"
	"github.com/marmos91/chunkcache/pkg/metrics"
)

// SchedulerConfig configures a Scheduler. None of these inputs are
// persisted by this package; a fresh run always starts from whatever the
// caller passes in here.
type SchedulerConfig struct {
	LaneCount     uint32 // L, must be a power of two
	WorkerCount   int
	DataSeed      uint64
	ExtraSeed     uint64
	StopTimestamp uint64 // 0 means no configured stop
	MaxRows       uint64
}

// Scheduler is the predictable-replay timestamp scheduler: a deterministic
// allocator of logical timestamps to worker threads, with lanes for
// contention-avoidance and rollback-preserving retry semantics.
type Scheduler struct {
	clock GlobalClock
	lanes *LaneTable

	dataSeed, extraSeed uint64
	stopTS              uint64
	maxRows             uint64

	oldestTS atomic.Uint64
	stableTS atomic.Uint64

	// prepareCommitMu serialises worker prepare-timestamp reads
	// against the advancer's push of oldest/stable.
	prepareCommitMu sync.Mutex

	metrics metrics.ReplayMetrics
}

// NewScheduler validates cfg and returns a ready Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	lanes, err := NewLaneTable(cfg.LaneCount)
	if err != nil {
		return nil, err
	}
	if cfg.WorkerCount <= 0 {
		return nil, ErrInvalidWorkers
	}
	return &Scheduler{
		lanes:     lanes,
		dataSeed:  cfg.DataSeed,
		extraSeed: cfg.ExtraSeed,
		stopTS:    cfg.StopTimestamp,
		maxRows:   cfg.MaxRows,
		metrics:   metrics.NewReplayMetrics(),
	}, nil
}

// NewWorker returns a fresh WorkerState for worker id.
func (s *Scheduler) NewWorker(id int) *WorkerState {
	return &WorkerState{ID: id, Lane: NoLane}
}

// GlobalTimestamp returns the current logical clock value (acquire-read).
func (s *Scheduler) GlobalTimestamp() uint64 {
	return s.clock.CurrentAcquire()
}

// OldestTimestamp and StableTimestamp report the checkpoints last pushed
// by the advancer (or zero before the first push).
func (s *Scheduler) OldestTimestamp() uint64 { return s.oldestTS.Load() }
func (s *Scheduler) StableTimestamp() uint64 { return s.stableTS.Load() }

// MaximumCommitted returns the smallest lane last_commit_ts among in-use
// lanes, bounded above by global_timestamp, with the cheap-scan caching
// policy.
func (s *Scheduler) MaximumCommitted() uint64 {
	return s.lanes.maximumCommitted(s.clock.CurrentAcquire())
}

// ReplayRunBegin logs the start of a replay run. There is no per-run
// state to reset: a Scheduler is single-use for the lifetime of one run.
func (s *Scheduler) ReplayRunBegin() {
	logger.Info("replay run begin", "lane_count", s.lanes.Count())
}

// ReplayRunEnd logs the end of a replay run.
func (s *Scheduler) ReplayRunEnd() {
	logger.Info("replay run end", logger.Timestamp(s.clock.CurrentAcquire()))
}

// ReplayLoopBegin picks the timestamp for the worker's next iteration. It
// returns quit=true when the worker should stop instead of starting
// another iteration.
//
// Pre-condition: the worker holds no open transaction, and
// replay_again ⇔ replay_ts ≠ 0.
func (s *Scheduler) ReplayLoopBegin(w *WorkerState) (quit bool) {
	if w.ReplayAgain {
		if w.Lane != s.lanes.laneOf(w.ReplayTS) {
			panic(&ReplayIntegrityError{
				Invariant: "lane == replay_ts & (L-1)",
				Detail:    "worker's retained lane does not match its retained replay_ts",
			})
		}
		w.ReplayAgain = false
		return false
	}

	if w.ReplayTS != 0 {
		panic(&ReplayIntegrityError{
			Invariant: "replay_again ⇔ replay_ts ≠ 0",
			Detail:    "worker reached loop top with a pending replay_ts but replay_again unset",
		})
	}

	if s.stopTS != 0 && s.stableTS.Load() >= s.stopTS {
		return true
	}

	ts, lane, retries := s.lanes.claimNext(s.clock.Increment)
	if s.metrics != nil {
		for i := 0; i < retries; i++ {
			s.metrics.RecordPickRetry()
		}
		s.metrics.RecordLaneOccupancy(s.lanes.occupancy(), int(s.lanes.Count()))
	}

	w.ReplayTS = ts
	w.Lane = lane
	w.replayStart = ts
	return false
}

// ReplayReadTS returns the read timestamp for the worker's upcoming
// transaction: the maximum committed timestamp at the moment of begin.
func (s *Scheduler) ReplayReadTS(w *WorkerState) uint64 {
	return s.MaximumCommitted()
}

// ReplayPrepareTS returns the optional prepare timestamp: replay_ts - L/2
// if replay_ts > replay_start + L and the result exceeds oldest_ts;
// otherwise replay_ts itself.
func (s *Scheduler) ReplayPrepareTS(w *WorkerState) uint64 {
	s.prepareCommitMu.Lock()
	defer s.prepareCommitMu.Unlock()

	half := uint64(s.lanes.Count()) / 2
	if w.ReplayTS > w.replayStart+uint64(s.lanes.Count()) {
		candidate := w.ReplayTS - half
		if candidate > s.oldestTS.Load() {
			return candidate
		}
	}
	return w.ReplayTS
}

// ReplayCommitTS returns the commit timestamp: always replay_ts.
func (s *Scheduler) ReplayCommitTS(w *WorkerState) uint64 {
	return w.ReplayTS
}

// ReplayCommitted implements the commit path: publish last_commit_ts,
// then either release the lane or retain it and advance replay_ts by L,
// obligating the worker to also perform that timestamp.
func (s *Scheduler) ReplayCommitted(w *WorkerState) {
	if err := s.lanes.commit(w.Lane, w.ReplayTS); err != nil {
		panic(err)
	}
	if s.metrics != nil {
		s.metrics.RecordCommit(w.Lane)
	}

	L := uint64(s.lanes.Count())
	if s.clock.CurrentAcquire() <= w.ReplayTS+L {
		s.lanes.release(w.Lane)
		w.Lane = NoLane
		w.ReplayTS = 0
		w.rollbackTries = 0
		return
	}

	w.ReplayTS += L
	w.ReplayAgain = true
}

// ReplayRollback implements the rollback path: retain replay_ts and
// lane, and mark replay_again so the next ReplayLoopBegin reuses them.
func (s *Scheduler) ReplayRollback(w *WorkerState) {
	w.ReplayAgain = true
	w.rollbackTries++
	if s.metrics != nil {
		s.metrics.RecordRollback(w.Lane, w.rollbackTries)
	}
}

// ReplayPauseAfterRollback implements the optional rollback back-off: the
// furthest-behind group never waits; a worker below the midpoint
// mostly yields; everyone else sleeps, capped at 100ms.
func (s *Scheduler) ReplayPauseAfterRollback(w *WorkerState, ntries int) {
	low := s.MaximumCommitted()
	high := s.clock.CurrentAcquire()
	L := uint64(s.lanes.Count())

	if low+L <= w.ReplayTS {
		return
	}
	mid := (high + low) / 2
	if w.ReplayTS < mid && ntries%10 != 0 {
		runtimeGosched()
		return
	}
	sleepBackoff(ntries)
}

// ReplayAdjustKey replaces the chosen key's low k bits with the worker's
// lane and handles wraparound: if the result is 0 it becomes L, and if
// it is >= maxRows it is reduced by L so it stays in range.
func (s *Scheduler) ReplayAdjustKey(w *WorkerState, rawKey uint64) uint64 {
	L := uint64(s.lanes.Count())
	key := (rawKey &^ (L - 1)) | uint64(w.Lane)
	if key == 0 {
		key = L
	}
	if s.maxRows > 0 && key >= s.maxRows {
		key -= L
	}
	w.Keyno = key
	return key
}

// SeedRNGs returns the deterministic (data, extra) RNG pair for the
// worker's current replay_ts.
func (s *Scheduler) SeedRNGs(w *WorkerState) (dataRNG, extraRNG *rand.Rand) {
	return dataSeedFor(w.ReplayTS, s.dataSeed), extraSeedFor(w.ReplayTS, s.extraSeed)
}

// pushCheckpoints is called only by the stable-timestamp advancer; it
// advances oldestTS/stableTS under the prepare-commit lock shared with
// worker prepare/commit.
func (s *Scheduler) pushCheckpoints(oldest, stable uint64) {
	s.prepareCommitMu.Lock()
	defer s.prepareCommitMu.Unlock()
	s.oldestTS.Store(oldest)
	s.stableTS.Store(stable)
}
