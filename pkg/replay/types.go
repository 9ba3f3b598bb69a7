// Package replay implements a deterministic allocator of logical
// timestamps to worker threads, with lanes for contention-avoidance,
// per-thread deterministic RNG seeding, and rollback-preserving retry
// semantics driving oldest/stable timestamp advancement.
//
// The storage engine itself — its B-tree, WAL, and transaction begin/
// commit machinery — lives elsewhere and is represented here only by the
// two interfaces a worker needs: EngineTxn to perform one operation, and
// CheckpointSink to push oldest/stable timestamps.
package replay

import (
	"errors"
	"math/rand/v2"
)

// NoLane is the sentinel WorkerState.Lane value meaning "holds no lane".
const NoLane = ^uint32(0)

// Scheduler configuration errors.
var (
	ErrInvalidLaneCount = errors.New("replay: lane count must be a power of two")
	ErrInvalidWorkers   = errors.New("replay: worker count must be > 0")
)

// ReplayIntegrityError reports a violated scheduler invariant: a worker's
// retained lane not matching its retained replay_ts, a pending replay_ts
// without replay_again set, a lane's last commit timestamp going
// backwards, or the advancer's oldest/stable timestamps going backwards.
// The Scheduler and Advancer methods panic with a *ReplayIntegrityError
// value in every build; none of them returns it as an error.
type ReplayIntegrityError struct {
	Invariant string
	Detail    string
}

func (e *ReplayIntegrityError) Error() string {
	if e.Detail == "" {
		return "replay: integrity violation: " + e.Invariant
	}
	return "replay: integrity violation: " + e.Invariant + ": " + e.Detail
}

// EngineTxn is the one transactional operation a worker performs per loop
// iteration. The engine, not this package, decides what the operation
// does; this package only supplies the timestamps and the deterministic
// RNGs driving its data/non-data choices.
type EngineTxn interface {
	// Begin starts a transaction reading as of readTS, optionally pinning a
	// prepare timestamp.
	Begin(readTS uint64, prepareTS uint64) error
	// Execute performs exactly one operation using dataRNG for data choices
	// (table, key, value) and extraRNG for non-data choices, with the key's
	// low bits already replaced by ReplayAdjustKey. Returns a rollback-worthy
	// error (e.g. a write conflict) to signal the caller should retry.
	Execute(key uint64, dataRNG, extraRNG *rand.Rand) error
	// Commit commits the transaction at commitTS.
	Commit(commitTS uint64) error
	// Rollback aborts the transaction.
	Rollback()
}

// CheckpointSink is the barrier the engine exposes for pushing oldest/
// stable timestamps, consumed by the stable-timestamp advancer.
type CheckpointSink interface {
	SetCheckpoints(oldest, stable uint64) error
}

// WorkerState holds one worker's replay progress across loop iterations.
// Lane == NoLane means the worker currently holds no lane.
type WorkerState struct {
	ID            int
	Lane          uint32
	ReplayTS      uint64 // 0 means none
	ReplayAgain   bool
	Keyno         uint64
	replayStart   uint64 // replay_ts at which this worker first claimed a lane
	rollbackTries int
}

// holdsLane reports whether the worker currently has a claimed lane.
func (w *WorkerState) holdsLane() bool {
	return w.Lane != NoLane
}
