//go:build !windows

// Package pmem implements a growable persistent-memory arena used as an
// alternative chunk-buffer backing for the chunk cache. It is a bump
// allocator over a memory-mapped file: unlike a write-ahead log, it keeps
// no entry format and no recovery path, because cache durability across
// restarts is explicitly not a goal of this backing.
package pmem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	arenaMagic        = "CCPM" // ChunkCache Persistent Memory
	arenaHeaderSize   = 32
	arenaInitialSize  = 64 * 1024 * 1024 // 64MiB
	arenaGrowthFactor = 2
)

var (
	// ErrNotAbsolute is returned when the arena directory is not an
	// absolute path.
	ErrNotAbsolute = errors.New("pmem: directory must be an absolute path")
	// ErrClosed is returned for operations on a closed arena.
	ErrClosed = errors.New("pmem: arena is closed")
	// ErrUnsupportedPlatform is returned on platforms without mmap support.
	ErrUnsupportedPlatform = errors.New("pmem: unsupported platform")
)

// segment is one memory-mapped extent of the arena file. start is the
// extent's offset in the arena's global (file-relative) address space.
type segment struct {
	start uint64
	data  []byte
}

// Arena is a growable mmap-backed bump allocator. Growth never unmaps or
// remaps an existing extent: doing so would leave every slice already
// handed out by a prior Alloc dangling, since the kernel is free to place
// a remapped region at a different address. Instead, growth maps an
// additional, disjoint extent of the same backing file and keeps every
// previously mapped extent alive for the arena's lifetime. Freed buffers
// of a given size are kept on a per-size free list for reuse; the arena
// only grows, it never shrinks or compacts, matching its role as a raw
// allocation choice rather than a durable store.
type Arena struct {
	mu sync.Mutex

	dir  string
	file *os.File

	segments []segment // every mapped extent, in growth order; never unmapped until Close
	size     uint64    // total bytes mapped across all segments (== file size)
	next     uint64    // next free global offset (bump pointer)

	freeLists map[uint64][][]byte
	closed    bool
}

// Open creates or reopens a persistent-memory arena rooted at dir. dir
// must be an absolute path; it is created if missing.
func Open(dir string) (*Arena, error) {
	if !filepath.IsAbs(dir) {
		return nil, ErrNotAbsolute
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pmem: create directory: %w", err)
	}

	a := &Arena{
		dir:       dir,
		freeLists: make(map[uint64][][]byte),
	}

	path := filepath.Join(dir, "chunkcache.arena")
	if _, err := os.Stat(path); err == nil {
		if err := a.openExisting(path); err != nil {
			return nil, err
		}
	} else {
		if err := a.createNew(path); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *Arena) createNew(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("pmem: create arena file: %w", err)
	}
	if err := f.Truncate(int64(arenaInitialSize)); err != nil {
		f.Close()
		return fmt.Errorf("pmem: truncate arena file: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, arenaInitialSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("pmem: mmap: %w", err)
	}

	copy(data[:len(arenaMagic)], arenaMagic)

	a.file = f
	a.segments = []segment{{start: 0, data: data}}
	a.size = arenaInitialSize
	a.next = arenaHeaderSize
	return nil
}

func (a *Arena) openExisting(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("pmem: open arena file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("pmem: stat arena file: %w", err)
	}

	size := uint64(info.Size())
	if size < arenaHeaderSize {
		f.Close()
		return fmt.Errorf("pmem: arena file too small")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("pmem: mmap: %w", err)
	}

	a.file = f
	a.segments = []segment{{start: 0, data: data}}
	a.size = size
	// Durability across restarts is out of scope: reopening an existing
	// arena file starts a fresh bump pointer past the header rather than
	// recovering prior allocations.
	a.next = arenaHeaderSize
	return nil
}

// Alloc returns a zeroed buffer of exactly size bytes backed by the arena,
// growing the underlying mapping if necessary. The returned slice remains
// valid for the lifetime of the arena regardless of later growth.
func (a *Arena) Alloc(size uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	if free := a.freeLists[size]; len(free) > 0 {
		buf := free[len(free)-1]
		a.freeLists[size] = free[:len(free)-1]
		clear(buf)
		return buf, nil
	}

	cur := &a.segments[len(a.segments)-1]
	localOff := a.next - cur.start
	if localOff+size > uint64(len(cur.data)) {
		if err := a.grow(size); err != nil {
			return nil, err
		}
		cur = &a.segments[len(a.segments)-1]
		localOff = a.next - cur.start
	}

	buf := cur.data[localOff : localOff+size : localOff+size]
	a.next += size
	clear(buf)
	return buf, nil
}

// Free returns buf to the arena's free list for its size class for reuse
// by a future Alloc of the same size. The underlying mapping is never
// shrunk.
func (a *Arena) Free(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || len(buf) == 0 {
		return
	}
	size := uint64(len(buf))
	a.freeLists[size] = append(a.freeLists[size], buf)
}

// grow maps a new, disjoint extent of the backing file sized to hold at
// least atLeast bytes, doubling the prior extent's size until it fits.
// Existing extents are left mapped untouched, so slices returned by
// earlier Alloc calls stay valid. The new extent becomes the bump target
// and a.next is advanced to its start. Caller must hold a.mu.
func (a *Arena) grow(atLeast uint64) error {
	last := a.segments[len(a.segments)-1]
	newSegSize := uint64(len(last.data))
	for newSegSize < atLeast {
		newSegSize *= arenaGrowthFactor
	}

	oldFileSize := a.size
	newFileSize := oldFileSize + newSegSize
	if err := a.file.Truncate(int64(newFileSize)); err != nil {
		return fmt.Errorf("pmem: truncate arena file: %w", err)
	}

	data, err := unix.Mmap(int(a.file.Fd()), int64(oldFileSize), int(newSegSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("pmem: mmap growth extent: %w", err)
	}

	a.segments = append(a.segments, segment{start: oldFileSize, data: data})
	a.size = newFileSize
	a.next = oldFileSize
	return nil
}

// Close unmaps every extent and closes the backing file. The arena is
// unusable after Close.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	for _, seg := range a.segments {
		if uerr := unix.Munmap(seg.data); uerr != nil && err == nil {
			err = uerr
		}
	}
	if cerr := a.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
