package mem

import "unsafe"

// Alignment is the byte alignment of every tile buffer allocation.
// 64 bytes keeps cell-major coordinate runs cache-line aligned.
const Alignment = 64

// AllocAligned returns a zeroed slice of length and capacity size whose
// first byte sits on an Alignment boundary, or nil when size <= 0.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}
	raw := make([]byte, size+Alignment-1)
	pad := padding(unsafe.Pointer(unsafe.SliceData(raw))) //nolint:gosec // alignment needs the address
	return raw[pad : pad+size : pad+size]
}

// GrowAligned returns an aligned slice of size bytes holding the first
// keep bytes of b. b is left untouched.
func GrowAligned(b []byte, keep, size int) []byte {
	out := AllocAligned(size)
	copy(out, b[:min(keep, len(b), size)])
	return out
}

// IsAligned reports whether b starts on an Alignment boundary. Empty slices
// count as aligned.
func IsAligned(b []byte) bool {
	return len(b) == 0 || padding(unsafe.Pointer(unsafe.SliceData(b))) == 0 //nolint:gosec // alignment needs the address
}

func padding(p unsafe.Pointer) int {
	return int(-uintptr(p) & (Alignment - 1))
}
