package chunkcache

// Invalidate removes every valid chunk of (name, objectID) that fully
// contains [offset, offset+size). Chunks that only partially overlap the
// invalidation range are left intact, because the cache never serves
// cross-chunk ranges and so a partially-overlapping chunk cannot be
// stale with respect to a query it would actually satisfy.
func (c *Cache) Invalidate(name string, objectID uint64, offset, size uint64) error {
	if !c.configured.Load() {
		return ErrNotConfigured
	}

	key := Key{Name: name, ObjectID: objectID}.normalize()
	b, _ := c.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chain := range b.chains {
		if chain.key != key {
			continue
		}

		kept := chain.chunks[:0]
		for _, ch := range chain.chunks {
			if ch.valid.Load() && ch.offset <= offset && ch.offset+ch.size >= offset+size {
				c.alloc.releaseBuffer(ch.bytes)
				c.alloc.refund(ch.size)
				c.removals.Add(1)
				if c.metrics != nil {
					c.metrics.RecordRemoval(ch.size)
					c.metrics.RecordBytesUsed(c.alloc.bytesUsed.Load())
				}
				continue
			}
			kept = append(kept, ch)
		}
		chain.chunks = kept
		return nil
	}

	return nil
}
