package chunkcache

import "time"

// LookupOrReserve is the cache's primary read path: it either returns a
// hit from an already-cached chunk or reserves a fresh one for the
// caller to fill.
//
// It acquires the owning bucket's lock, finds or creates the chain for
// (name, objectID), and either:
//   - copies size bytes from a chunk that fully covers [offset, offset+size)
//     into outBuf and returns Hit, or
//   - reserves a freshly admitted chunk and returns MissReservation, or
//   - returns MissNoReservation if nothing can be admitted.
//
// Chunks are admitted on default-chunk-size-aligned boundaries, so a
// query that straddles an alignment boundary is a miss even when bytes on
// both sides are cached; the reservation then lands on the first aligned
// slot in the query range that holds no chunk yet. The caller reads
// Reservation.Size() bytes at Reservation.Offset() from the backing store
// and hands them to Publish.
//
// outBuf must have length >= size; on Hit, outBuf[:size] holds the result.
func (c *Cache) LookupOrReserve(name string, objectID uint64, offset, size uint64, outBuf []byte) (Result, error) {
	if !c.configured.Load() {
		return Result{}, ErrNotConfigured
	}
	start := time.Now()
	if c.metrics != nil {
		defer func() { c.metrics.ObserveLookupDuration(time.Since(start)) }()
	}

	key := Key{Name: name, ObjectID: objectID}.normalize()
	b, idx := c.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	chain := b.chainFor(key)

	if ch := chain.findCovering(offset, size); ch != nil {
		if ch.valid.Load() {
			start := offset - ch.offset
			copy(outBuf, ch.bytes[start:start+size])
			c.hits.Add(1)
			if c.metrics != nil {
				c.metrics.RecordHit()
			}
			return Result{Outcome: Hit}, nil
		}

		// Another concurrent caller already reserved a chunk covering this
		// exact range; the non-overlap invariant forbids admitting a second
		// one, so hand back the same outstanding reservation.
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.RecordMiss()
		}
		return Result{
			Outcome: MissReservation,
			Reservation: Reservation{
				bucketIdx: idx,
				key:       key,
				chunkID:   ch.id,
				offset:    ch.offset,
				size:      ch.size,
			},
		}, nil
	}

	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.RecordMiss()
	}

	// Walk the aligned slots the query range touches and admit into the
	// first one holding no chunk. A slot partially occupied by an existing
	// chunk is skipped: inserting there would overlap.
	align := c.cfg.DefaultChunkSize
	firstSlot := (offset / align) * align
	lastSlot := ((offset + size - 1) / align) * align
	for slot := firstSlot; ; slot += align {
		if !chain.overlaps(slot, slot+align) {
			return c.reserveAt(chain, key, idx, slot, name, objectID)
		}
		if slot == lastSlot {
			break
		}
	}
	return Result{Outcome: MissNoReservation}, nil
}

// reserveAt admits a new chunk at the aligned offset slot. Caller holds
// the bucket lock.
func (c *Cache) reserveAt(chain *chunkChain, key Key, bucketIdx uint32, slot uint64, name string, objectID uint64) (Result, error) {
	newSize := c.alloc.admitSize()
	if newSize == 0 {
		return Result{Outcome: MissNoReservation}, nil
	}
	if c.cfg.ObjectSize != nil {
		if objSize, ok := c.cfg.ObjectSize(name, objectID); ok {
			var remaining uint64
			if objSize > slot {
				remaining = objSize - slot
			}
			if remaining < newSize {
				newSize = remaining
			}
			if newSize == 0 {
				return Result{Outcome: MissNoReservation}, nil
			}
		}
	}

	if !c.alloc.charge(newSize) {
		return Result{Outcome: MissNoReservation}, nil
	}

	buf, err := c.alloc.allocateBuffer(newSize)
	if err != nil {
		c.alloc.refund(newSize)
		if c.metrics != nil {
			c.metrics.RecordBytesUsed(c.alloc.bytesUsed.Load())
		}
		return Result{Outcome: MissNoReservation}, nil
	}

	id := c.nextChunkID.Add(1)
	newChunk := &chunk{
		id:     id,
		offset: slot,
		size:   newSize,
		bytes:  buf,
	}
	chain.insert(newChunk)

	c.allocations.Add(1)
	if c.metrics != nil {
		c.metrics.RecordAllocation(newSize)
		c.metrics.RecordBytesUsed(c.alloc.bytesUsed.Load())
	}

	return Result{
		Outcome: MissReservation,
		Reservation: Reservation{
			bucketIdx: bucketIdx,
			key:       key,
			chunkID:   id,
			offset:    slot,
			size:      newSize,
		},
	}, nil
}
