package replay

import "sync/atomic"

// GlobalClock is the globally monotonic 64-bit logical clock driving
// timestamp assignment. Increment only ever happens from timestamp pick
// (Scheduler.ReplayLoopBegin, via LaneTable.claimNext); every other
// caller only reads.
type GlobalClock struct {
	timestamp atomic.Uint64
}

// CurrentAcquire returns the current timestamp with acquire ordering.
func (c *GlobalClock) CurrentAcquire() uint64 {
	return c.timestamp.Load()
}

// Increment performs a fetch-add and returns the post-increment value.
// The only legitimate caller is LaneTable.claimNext from within
// Scheduler.ReplayLoopBegin; every other path in this package only reads
// the clock.
func (c *GlobalClock) Increment() uint64 {
	return c.timestamp.Add(1)
}
