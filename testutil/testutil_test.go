package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Reproducible(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	assert.Equal(t, a.Bytes(64), b.Bytes(64))
	assert.Equal(t, a.Float64Cells(10, 0, 1), b.Float64Cells(10, 0, 1))

	first := a.Int32Cells(8, 100)
	a.Reset()
	_ = a.Bytes(64)
	_ = a.Float64Cells(10, 0, 1)
	assert.Equal(t, first, a.Int32Cells(8, 100))
	assert.Equal(t, int64(42), a.Seed())
}

func TestRNG_Cells(t *testing.T) {
	r := NewRNG(1)

	ints := r.Int32Cells(100, 10)
	require.Len(t, ints, 400)
	for i := 0; i < len(ints); i += 4 {
		v := int32(binary.LittleEndian.Uint32(ints[i:]))
		assert.GreaterOrEqual(t, v, int32(0))
		assert.Less(t, v, int32(10))
	}

	z := r.ZipfCells(50, 1.5, 1000)
	require.Len(t, z, 400)
	for i := 0; i < len(z); i += 8 {
		assert.LessOrEqual(t, binary.LittleEndian.Uint64(z[i:]), uint64(1000))
	}

	assert.Len(t, r.Float64Cells(3, 5, 1), 24)
}

func TestRNG_Offsets(t *testing.T) {
	r := NewRNG(7)

	offsets := r.Offsets(10, 100)
	require.Len(t, offsets, 10)
	assert.Equal(t, uint64(0), offsets[0])
	for i := 1; i < len(offsets); i++ {
		assert.Greater(t, offsets[i], offsets[i-1])
	}
	assert.Less(t, offsets[9], uint64(100))

	assert.Nil(t, r.Offsets(5, 3))
	assert.Nil(t, r.Offsets(0, 3))
}
