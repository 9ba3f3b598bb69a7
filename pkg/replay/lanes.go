package replay

import "sync"

// Lane is one slot of the lane table. At most one worker holds
// in_use == true for a given lane at a time.
type Lane struct {
	inUse        bool
	lastCommitTS uint64
}

// LaneTable is the fixed-size array of L = 2^k lanes. A timestamp's lane
// is its low k bits; lanes exist purely to keep two concurrent workers
// from ever picking keys that collide in their low bits, since a lane is
// held by at most one worker at a time.
//
// maximumCommitted's cheap-scan policy caches its result and only
// rescans every cheapScanPeriod-th call; the cached value is a safe
// stale hint because last_commit_ts is monotone non-decreasing per lane
// and global_timestamp only increases.
type LaneTable struct {
	mu    sync.RWMutex
	lanes []Lane

	callCount       uint64
	cachedCommitted uint64
}

// cheapScanPeriod is the cadence at which maximumCommitted forces a full
// rescan instead of trusting its cached value.
const cheapScanPeriod = 20

// NewLaneTable returns a LaneTable with count lanes, all initially free.
// count must be a power of two (the mask trick in laneOf relies on it).
func NewLaneTable(count uint32) (*LaneTable, error) {
	if count == 0 || count&(count-1) != 0 {
		return nil, ErrInvalidLaneCount
	}
	return &LaneTable{lanes: make([]Lane, count)}, nil
}

// Count returns L, the configured number of lanes.
func (t *LaneTable) Count() uint32 {
	return uint32(len(t.lanes))
}

// laneOf returns the lane index a timestamp belongs to: its low k bits.
func (t *LaneTable) laneOf(ts uint64) uint32 {
	return uint32(ts) & (t.Count() - 1)
}

// tryClaim claims lane idx if it is free, returning whether the claim
// succeeded. Caller must hold no lock; tryClaim takes the write lock
// itself since claiming is a structural mutation.
func (t *LaneTable) tryClaim(idx uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lanes[idx].inUse {
		return false
	}
	t.lanes[idx].inUse = true
	return true
}

// claimNext implements the timestamp pick's lane-skip loop: under the
// lane table's write lock, repeatedly draw the next candidate timestamp
// and check whether its lane is free, looping past any that are in use.
// next is called to draw the next candidate timestamp (ordinarily
// GlobalClock.Increment); retries reports how many occupied lanes were
// skipped before a free one was found, for metrics.
func (t *LaneTable) claimNext(next func() uint64) (ts uint64, lane uint32, retries int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		ts = next()
		lane = t.laneOf(ts)
		if !t.lanes[lane].inUse {
			t.lanes[lane].inUse = true
			return ts, lane, retries
		}
		retries++
	}
}

// commit publishes lastCommitTS for lane idx under the write lock as a
// release-publish, so other lock holders observing the new value also
// observe everything the committing worker did beforehand. It asserts
// the monotonicity invariant.
func (t *LaneTable) commit(idx uint32, ts uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ts < t.lanes[idx].lastCommitTS {
		return &ReplayIntegrityError{
			Invariant: "lane last_commit_ts monotonicity",
			Detail:    "lane committed a timestamp older than its previous commit",
		}
	}
	t.lanes[idx].lastCommitTS = ts
	return nil
}

// release frees lane idx (in_use = false). Caller must already hold the
// lane (i.e. have claimed it via claimNext or tryClaim).
func (t *LaneTable) release(idx uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lanes[idx].inUse = false
}

// occupancy returns the number of lanes currently in_use, for metrics.
func (t *LaneTable) occupancy() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, l := range t.lanes {
		if l.inUse {
			n++
		}
	}
	return n
}

// maximumCommitted computes min(global_timestamp, min over in_use lanes of
// last_commit_ts). Lanes whose last_commit_ts is still 0 (never
// committed) are skipped, so a fresh run before any commits returns
// global_timestamp unmodified.
func (t *LaneTable) maximumCommitted(globalTS uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callCount++
	if t.callCount%cheapScanPeriod != 1 && t.cachedCommitted != 0 {
		if t.cachedCommitted < globalTS {
			return t.cachedCommitted
		}
	}

	m := globalTS
	for _, l := range t.lanes {
		if !l.inUse || l.lastCommitTS == 0 {
			continue
		}
		if l.lastCommitTS < m {
			m = l.lastCommitTS
		}
	}
	t.cachedCommitted = m
	return m
}
