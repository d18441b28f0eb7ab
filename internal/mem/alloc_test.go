package mem

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	for _, size := range []int{1, 7, 63, 64, 65, 4096, 1<<20 + 3} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			b := AllocAligned(size)
			require.Len(t, b, size)
			assert.Equal(t, size, cap(b), "appends must not reach the padding")
			assert.True(t, IsAligned(b))
			assert.Equal(t, -1, bytes.IndexFunc(b, func(r rune) bool { return r != 0 }))
		})
	}
}

func TestAllocAligned_NonPositive(t *testing.T) {
	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-8))
	assert.True(t, IsAligned(nil))
}

func TestIsAligned_Offset(t *testing.T) {
	b := AllocAligned(2 * Alignment)
	assert.False(t, IsAligned(b[1:]))
	assert.True(t, IsAligned(b[Alignment:]))
}

func TestGrowAligned(t *testing.T) {
	src := []byte("coords")

	got := GrowAligned(src, 3, 16)
	require.Len(t, got, 16)
	assert.True(t, IsAligned(got))
	assert.Equal(t, []byte("coo"), got[:3])
	assert.Equal(t, make([]byte, 13), got[3:])
	assert.Equal(t, "coords", string(src))

	// keep is clamped to both lengths.
	assert.Equal(t, []byte("co"), GrowAligned(src, 100, 2))
	assert.Equal(t, []byte("coords\x00\x00"), GrowAligned(src, 100, 8))
	assert.Nil(t, GrowAligned(nil, 0, 0))
}

func BenchmarkAllocAligned(b *testing.B) {
	for _, size := range []int{64, 4096, 1 << 20} {
		b.Run(strconv.Itoa(size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(size))
			for b.Loop() {
				_ = AllocAligned(size)
			}
		})
	}
}
