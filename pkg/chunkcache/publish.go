package chunkcache

import "time"

// Publish fills a reserved chunk with bytes and marks it valid.
//
// The validity flag is published with a release-ordered atomic store;
// readers that later observe valid == true via LookupOrReserve's
// acquire-ordered load are guaranteed to see these fully-copied bytes,
// matching the copy-out contract: callers never retain the chunk's
// backing buffer past this call.
func (c *Cache) Publish(r Reservation, bytes []byte) error {
	if !c.configured.Load() {
		return ErrNotConfigured
	}
	start := time.Now()
	if c.metrics != nil {
		defer func() { c.metrics.ObservePublishDuration(time.Since(start)) }()
	}

	b := c.buckets[r.bucketIdx]
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := findReservedChunk(b, r)
	if ch == nil {
		return ErrReservationUnknown
	}

	copy(ch.bytes, bytes)
	ch.valid.Store(true)
	return nil
}

// Abandon releases a reservation the caller failed to fill (e.g. the
// backing-store read failed). The unpublished chunk is removed from its
// chain and its charged capacity refunded.
func (c *Cache) Abandon(r Reservation) error {
	if !c.configured.Load() {
		return ErrNotConfigured
	}

	b := c.buckets[r.bucketIdx]
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chain := range b.chains {
		if chain.key != r.key {
			continue
		}
		removed := chain.removeByID(r.chunkID)
		if removed == nil {
			return ErrReservationUnknown
		}
		c.alloc.releaseBuffer(removed.bytes)
		c.alloc.refund(removed.size)
		c.removals.Add(1)
		if c.metrics != nil {
			c.metrics.RecordRemoval(removed.size)
			c.metrics.RecordBytesUsed(c.alloc.bytesUsed.Load())
		}
		return nil
	}
	return ErrReservationUnknown
}

// findReservedChunk locates the not-yet-necessarily-valid chunk a
// reservation refers to. Caller must hold b.mu.
func findReservedChunk(b *bucket, r Reservation) *chunk {
	for _, chain := range b.chains {
		if chain.key != r.key {
			continue
		}
		for _, ch := range chain.chunks {
			if ch.id == r.chunkID {
				return ch
			}
		}
	}
	return nil
}
