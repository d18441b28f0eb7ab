package testutil

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
)

// RNG wraps a seeded generator. It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Bytes returns n uniformly random bytes. They do not compress.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, n)
	_, _ = r.rand.Read(out)
	return out
}

// Int32Cells returns n little-endian int32 cells in [0,limit).
func (r *RNG) Int32Cells(n int, limit int32) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, 0, n*4)
	for range n {
		out = binary.LittleEndian.AppendUint32(out, uint32(r.rand.Int31n(limit)))
	}
	return out
}

// Float64Cells returns n little-endian float64 cells drawn from a normal
// distribution with the given mean and standard deviation.
func (r *RNG) Float64Cells(n int, mean, stddev float64) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, 0, n*8)
	for range n {
		v := r.rand.NormFloat64()*stddev + mean
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

// ZipfCells returns n little-endian uint64 cells following a Zipf
// distribution over [0,imax] with exponent s > 1. Skewed cells compress
// well and stand in for sorted dimension data.
func (r *RNG) ZipfCells(n int, s float64, imax uint64) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	z := rand.NewZipf(r.rand, s, 1, imax)
	out := make([]byte, 0, n*8)
	for range n {
		out = binary.LittleEndian.AppendUint64(out, z.Uint64())
	}
	return out
}

// Offsets splits total bytes into n variable-length cells and returns the
// start offset of each cell. Every cell holds at least one byte.
func (r *RNG) Offsets(n int, total uint64) []uint64 {
	if n <= 0 || uint64(n) > total {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	offsets := make([]uint64, n)
	remaining := total - uint64(n)
	var pos uint64
	for i := range n {
		offsets[i] = pos
		extra := uint64(0)
		if i < n-1 && remaining > 0 {
			extra = uint64(r.rand.Int63n(int64(remaining/uint64(n-i)) + 1))
			remaining -= extra
		}
		pos += 1 + extra
	}
	return offsets
}
