// Package chunkcache implements a sharded, bucket-locked cache of
// byte-range chunks read from named backing objects.
package chunkcache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// NameMax is the maximum number of bytes of an object name considered by
// the hash and by key equality. Longer names are truncated.
const NameMax = 255

// Key identifies a backing object: its name (truncated to NameMax bytes)
// and its object ID. Equality on Key is byte-exact.
type Key struct {
	Name     string
	ObjectID uint64
}

// normalize truncates the name to NameMax bytes, matching the hash input.
func (k Key) normalize() Key {
	if len(k.Name) <= NameMax {
		return k
	}
	return Key{Name: k.Name[:NameMax], ObjectID: k.ObjectID}
}

// hash64 computes a stable 64-bit hash over (name, object-id). The specific
// hash function is an implementation detail; callers must not depend on it
// beyond its use for bucket placement.
func hash64(k Key) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], k.ObjectID)

	h := xxhash.New()
	_, _ = h.WriteString(k.Name)
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// bucketIndex returns the bucket that owns the chain for k, given the
// configured bucket count.
func bucketIndex(k Key, bucketCount uint32) uint32 {
	return uint32(hash64(k) % uint64(bucketCount))
}
