package commands

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// fakeBackingStore stands in for the storage engine's read-from-backing-
// store callback. It serves deterministic synthetic bytes for any
// object so chunkbench cache can demonstrate hits/misses without a real
// filesystem or database behind it.
type fakeBackingStore struct{}

// read fills buf with deterministic bytes for (objectID, offset).
func (s *fakeBackingStore) read(objectID uint64, offset uint64, buf []byte) {
	for i := range buf {
		buf[i] = byte((objectID + offset + uint64(i)) % 251)
	}
}

// newSyntheticObjectID returns an opaque 64-bit id derived from a
// generated UUID, the same way content-store identifiers are minted
// elsewhere in this stack.
func newSyntheticObjectID() uint64 {
	id := uuid.New()
	var v uint64
	for _, b := range id[:8] {
		v = v<<8 | uint64(b)
	}
	return v
}

// fakeTable is one logical table in the synthetic database a replay
// worker mutates: a map of rows keyed by row number, each row
// holding the last value and commit timestamp written to it.
type fakeTable struct {
	mu   sync.Mutex
	rows map[uint64]fakeRow
}

type fakeRow struct {
	value     uint64
	committed uint64
}

// fakeEngine implements replay.EngineTxn against an in-memory table,
// standing in for the storage engine's B-tree/WAL transaction machinery.
// It is intentionally tiny: enough to exercise the scheduler's
// begin/execute/commit/rollback contract end to end.
type fakeEngine struct {
	table *fakeTable

	mu          sync.Mutex
	readTS      uint64
	prepareTS   uint64
	pendingKey  uint64
	pendingVal  uint64
	hasPending  bool
	conflictPct int // 0-100, chance Execute reports a write conflict
}

func newFakeEngine(conflictPct int) *fakeEngine {
	return &fakeEngine{
		table:       &fakeTable{rows: make(map[uint64]fakeRow)},
		conflictPct: conflictPct,
	}
}

func (e *fakeEngine) Begin(readTS, prepareTS uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readTS = readTS
	e.prepareTS = prepareTS
	e.hasPending = false
	return nil
}

func (e *fakeEngine) Execute(key uint64, dataRNG, extraRNG *rand.Rand) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Conflict injection draws from the process-global RNG, not extraRNG:
	// the worker's RNGs are reseeded identically on every retry of the
	// same replay timestamp, so a deterministic draw would conflict
	// forever instead of behaving like a transient write conflict.
	if e.conflictPct > 0 && rand.IntN(100) < e.conflictPct {
		return fmt.Errorf("fakeengine: simulated write conflict on key %d", key)
	}

	e.pendingKey = key
	e.pendingVal = dataRNG.Uint64()
	e.hasPending = true
	return nil
}

func (e *fakeEngine) Commit(commitTS uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasPending {
		return nil
	}
	e.table.mu.Lock()
	e.table.rows[e.pendingKey] = fakeRow{value: e.pendingVal, committed: commitTS}
	e.table.mu.Unlock()
	e.hasPending = false
	return nil
}

func (e *fakeEngine) Rollback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hasPending = false
}

// fakeCheckpointSink records the oldest/stable timestamps the advancer
// pushes, standing in for the engine's timestamp API.
type fakeCheckpointSink struct {
	mu     sync.Mutex
	oldest uint64
	stable uint64
}

func (s *fakeCheckpointSink) SetCheckpoints(oldest, stable uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oldest, s.stable = oldest, stable
	return nil
}

func (s *fakeCheckpointSink) snapshot() (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oldest, s.stable
}
