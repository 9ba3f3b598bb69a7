//go:build windows

// arena_windows.go stubs the persistent-memory arena on Windows, where
// this package's mmap mechanics are not implemented.

package pmem

// Arena is not supported on Windows; use BackingDRAM instead.
type Arena struct{}

// Open always fails on Windows.
func Open(_ string) (*Arena, error) {
	return nil, ErrUnsupportedPlatform
}

// Alloc is not supported on Windows.
func (a *Arena) Alloc(_ uint64) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}

// Free is a no-op on Windows.
func (a *Arena) Free(_ []byte) {}

// Close is a no-op on Windows.
func (a *Arena) Close() error {
	return nil
}
