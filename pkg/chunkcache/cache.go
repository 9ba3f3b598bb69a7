package chunkcache

import (
	"sync"
	"sync/atomic"
)

// Cache is the hashed, bucket-locked store mapping (object-name,
// object-id, offset) to in-memory or persistent-memory byte chunks.
//
// Thread safety mirrors a two-level locking scheme: a short-lived
// configuration guard (configureOnce) protects one-shot setup, and each
// bucket carries its own exclusive lock protecting structural changes to
// its chains and the validity of its chunks. There is no global lock on
// the hot path.
type Cache struct {
	configureOnce sync.Once
	configured    atomic.Bool
	cfg           ChunkCacheConfig

	buckets []*bucket
	alloc   *allocator

	nextChunkID atomic.Uint64

	hits        atomic.Uint64
	misses      atomic.Uint64
	allocations atomic.Uint64
	removals    atomic.Uint64

	metrics Metrics // nil-safe observability hook
}

// New returns an unconfigured Cache. Configure must be called exactly
// once before LookupOrReserve, Publish, Abandon, or Invalidate.
func New() *Cache {
	return &Cache{}
}

// Configure performs the one-shot cache setup described by cfg.
// Re-configuration is not supported and returns ErrAlreadyConfigured.
func (c *Cache) Configure(cfg ChunkCacheConfig) error {
	if cfg.CapacityBytes == 0 {
		return ErrInvalidCapacity
	}

	bucketCount := cfg.BucketCount
	if bucketCount == 0 {
		bucketCount = DefaultHash
	}
	if bucketCount < MinHash || bucketCount > MaxHash {
		return ErrInvalidHashSize
	}
	cfg.BucketCount = bucketCount

	if cfg.DefaultChunkSize == 0 {
		cfg.DefaultChunkSize = DefaultChunkSize
	}

	if cfg.Backing == BackingPersistentMem && !isAbsolutePath(cfg.PersistentMemDir) {
		return ErrInvalidDirectory
	}

	var configErr error
	ran := false
	c.configureOnce.Do(func() {
		ran = true
		alloc, err := newAllocator(cfg)
		if err != nil {
			configErr = err
			return
		}

		buckets := make([]*bucket, bucketCount)
		for i := range buckets {
			buckets[i] = &bucket{}
		}

		c.cfg = cfg
		c.buckets = buckets
		c.alloc = alloc
		c.configured.Store(true)
	})

	if !ran {
		return ErrAlreadyConfigured
	}
	return configErr
}

// SetMetrics attaches a Metrics sink. Safe to call once after Configure;
// nil disables metrics (the default).
func (c *Cache) SetMetrics(m Metrics) {
	c.metrics = m
}

// isAbsolutePath reports whether p looks like an absolute filesystem path.
// Kept minimal and OS-agnostic rather than importing path/filepath's
// platform-specific IsAbs, since the cache itself performs no filesystem
// access beyond what the pmem package does internally.
func isAbsolutePath(p string) bool {
	if len(p) == 0 {
		return false
	}
	if p[0] == '/' {
		return true
	}
	// Windows drive-letter absolute paths, e.g. "C:\\data".
	if len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/') {
		return true
	}
	return false
}

// bucketFor returns the bucket owning key's chain.
func (c *Cache) bucketFor(key Key) (*bucket, uint32) {
	idx := bucketIndex(key, c.cfg.BucketCount)
	return c.buckets[idx], idx
}

// Close releases resources held by the configured backing (the
// persistent-memory arena's mapped file, if any). A DRAM-backed or
// unconfigured cache has nothing to release.
func (c *Cache) Close() error {
	if c.alloc == nil {
		return nil
	}
	return c.alloc.close()
}
