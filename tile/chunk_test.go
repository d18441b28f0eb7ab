package tile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChunkSize(t *testing.T) {
	tests := []struct {
		name     string
		tileSize uint64
		dimNum   uint32
		cellSize uint64
		want     uint32
	}{
		{"large tile is capped", 1 << 20, 0, 4, uint32(MaxTileChunkSize)},
		{"small tile rounds to cells", 100, 0, 8, 96},
		{"tile smaller than a cell", 2, 0, 4, 4},
		{"exact multiple", 40, 0, 4, 40},
		{"split across dimensions", 40, 2, 8, 20},
		{"cap rounds down to cells", 1 << 20, 0, 12, uint32(MaxTileChunkSize / 12 * 12)},
		{"empty tile yields one cell", 0, 1, 16, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeChunkSize(tt.tileSize, tt.dimNum, tt.cellSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeChunkSize_Bounds(t *testing.T) {
	for _, tileSize := range []uint64{1, 7, 100, 4096, 1 << 16, 1<<16 + 3, 1 << 24} {
		for _, cellSize := range []uint64{1, 3, 4, 8, 24} {
			got, err := ComputeChunkSize(tileSize, 0, cellSize)
			require.NoError(t, err)

			chunk := uint64(got)
			assert.GreaterOrEqual(t, chunk, cellSize)
			assert.LessOrEqual(t, chunk, max(MaxTileChunkSize, cellSize))
			assert.Zero(t, chunk%cellSize, "tile=%d cell=%d", tileSize, cellSize)
		}
	}
}

func TestComputeChunkSize_InvalidCellSize(t *testing.T) {
	_, err := ComputeChunkSize(64, 2, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ComputeChunkSize(64, 0, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestComputeChunkSize_Overflow(t *testing.T) {
	_, err := computeChunkSize(1<<40, 0, 1, 1<<40)
	require.ErrorIs(t, err, ErrOverflow)

	var overflow *OverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, uint64(1<<40), overflow.ChunkSize)

	got, err := computeChunkSize(math.MaxUint32, 0, 1, 1<<40)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got)
}
