package util

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for the bucket hash of an index.
// Two indexes over equal data therefore never share a bucket layout.
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// UintKey is the hashed representation of a column value inside an index
type UintKey uint64

// NullKey is the key every null value hashes to
const NullKey UintKey = 0

const (
	offset64 = 14695981039346656037
	prime64  = 1099511628211
)

// HashString hashes a string with FNV-1a, mixing in the seed
func HashString(s string, seed uint64) UintKey {
	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return UintKey(hash)
}

// HashBytes is the []byte variant of HashString
func HashBytes(b []byte, seed uint64) UintKey {
	hash := uint64(offset64) ^ seed
	for _, c := range b {
		hash ^= uint64(c)
		hash *= prime64
	}
	return UintKey(hash)
}

// HashUint64 spreads an integer over the key space (splitmix64 finalizer).
// Sequential ids would otherwise cluster in neighbouring buckets.
func HashUint64(v uint64) UintKey {
	v ^= v >> 30
	v *= 0xbf58476d1ce4e5b9
	v ^= v >> 27
	v *= 0x94d049bb133111eb
	v ^= v >> 31
	if v == uint64(NullKey) {
		v = 1
	}
	return UintKey(v)
}

// HashFloat64 hashes the bit pattern of a float, folding -0 into +0
func HashFloat64(f float64) UintKey {
	if f == 0 {
		f = 0
	}
	return HashUint64(math.Float64bits(f))
}
