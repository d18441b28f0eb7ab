package tile

import (
	"fmt"
	"math"
)

// MaxTileChunkSize is the upper bound on the bytes per dimension in one
// filter pipeline chunk.
const MaxTileChunkSize uint64 = 64 * 1024

// ComputeChunkSize returns the number of bytes the filter pipeline puts in one
// chunk of a tile.
//
// The tile and cell sizes are split evenly across the dimensions (dimNum 0
// counts as 1). The chunk is the smaller of MaxTileChunkSize and the
// per-dimension tile size, rounded down to a whole number of per-dimension
// cells and never below one cell.
func ComputeChunkSize(tileSize uint64, dimNum uint32, cellSize uint64) (uint32, error) {
	return computeChunkSize(tileSize, dimNum, cellSize, MaxTileChunkSize)
}

func computeChunkSize(tileSize uint64, dimNum uint32, cellSize, maxChunk uint64) (uint32, error) {
	dims := uint64(max(dimNum, 1))
	dimTileSize := tileSize / dims
	dimCellSize := cellSize / dims
	if dimCellSize == 0 {
		return 0, fmt.Errorf("%w: cell size %d cannot be split across %d dimensions", ErrInvalidArgument, cellSize, dims)
	}

	chunk := min(maxChunk, dimTileSize)
	chunk = chunk / dimCellSize * dimCellSize
	chunk = max(chunk, dimCellSize)
	if chunk > math.MaxUint32 {
		return 0, &OverflowError{ChunkSize: chunk}
	}
	return uint32(chunk), nil
}
