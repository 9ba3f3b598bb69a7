package chunkcache

import (
	"sync/atomic"

	"github.com/marmos91/chunkcache/pkg/bufpool"
	"github.com/marmos91/chunkcache/pkg/chunkcache/pmem"
)

// allocator implements admission and allocation: it decides chunk sizes,
// allocates backing memory from DRAM or persistent-memory, and charges/
// refunds capacity atomically.
//
// bytesUsed is a shared atomic scalar rather than something protected by a
// bucket lock, since admission decisions span buckets and must stay
// consistent cache-wide.
type allocator struct {
	backing   Backing
	capacity  uint64
	chunkSize uint64
	bytesUsed atomic.Uint64

	// dramPool reuses default-chunk-size buffers to cut GC pressure. A
	// sub-chunk tail allocation is carved from a pooled buffer and returns
	// to the pool on free; only oversized requests bypass it.
	dramPool *bufpool.Pool

	// arena backs persistent-memory allocations. nil when backing == BackingDRAM.
	arena *pmem.Arena
}

func newAllocator(cfg ChunkCacheConfig) (*allocator, error) {
	a := &allocator{
		backing:   cfg.Backing,
		capacity:  cfg.CapacityBytes,
		chunkSize: cfg.DefaultChunkSize,
	}
	a.dramPool = bufpool.New(int(a.chunkSize))

	if cfg.Backing == BackingPersistentMem {
		arena, err := pmem.Open(cfg.PersistentMemDir)
		if err != nil {
			return nil, err
		}
		a.arena = arena
	}

	return a, nil
}

// admitSize returns the size to reserve for a new chunk at the current
// capacity pressure. Returns 0 if the cache is full.
func (a *allocator) admitSize() uint64 {
	used := a.bytesUsed.Load()
	if used >= a.capacity {
		return 0
	}

	size := a.chunkSize
	if avail := a.capacity - used; size > avail {
		size = avail
	}
	return size
}

// charge reserves size bytes of capacity, returning false if doing so
// would exceed the configured capacity.
func (a *allocator) charge(size uint64) bool {
	for {
		used := a.bytesUsed.Load()
		if used+size > a.capacity {
			return false
		}
		if a.bytesUsed.CompareAndSwap(used, used+size) {
			return true
		}
	}
}

// refund releases size bytes of previously charged capacity.
func (a *allocator) refund(size uint64) {
	a.bytesUsed.Add(^(size - 1))
}

// allocateBuffer returns a zeroed buffer of exactly size bytes from the
// configured backing. Capacity must already have been charged by the
// caller via charge.
func (a *allocator) allocateBuffer(size uint64) ([]byte, error) {
	if a.backing == BackingPersistentMem {
		return a.arena.Alloc(size)
	}

	buf := a.dramPool.Get(int(size))
	clear(buf)
	return buf, nil
}

// releaseBuffer returns buf to the DRAM pool when it matches the pooled
// size class, or drops it for the garbage collector otherwise. Persistent-
// memory buffers are freed back into the arena.
func (a *allocator) releaseBuffer(buf []byte) {
	if a.backing == BackingPersistentMem {
		a.arena.Free(buf)
		return
	}
	a.dramPool.Put(buf)
}

// close releases any resources held by the allocator (the persistent-
// memory arena's mapped file, if any).
func (a *allocator) close() error {
	if a.arena != nil {
		return a.arena.Close()
	}
	return nil
}
