package tile

import (
	"fmt"

	"github.com/hupe1980/tilestore/buffer"
)

// ZipCoordinates reorders a coordinate tile from dimension-major layout,
// one run of values per dimension, to cell-major layout with each cell's
// values contiguous in dimension order.
//
// The reorder works on a scratch copy of the whole tile, so peak memory is
// twice the tile size. The copy is charged to the tile's controller.
func (t *Tile) ZipCoordinates() error {
	return t.reorderCoordinates("ZipCoordinates", true)
}

// UnzipCoordinates is the inverse of ZipCoordinates.
func (t *Tile) UnzipCoordinates() error {
	return t.reorderCoordinates("UnzipCoordinates", false)
}

func (t *Tile) reorderCoordinates(op string, zip bool) error {
	if t.dimNum == 0 {
		invalidState(op, "tile does not store coordinates")
	}
	t.requireUnfiltered(op)
	b := t.buffer(op)

	coordSize := t.cellSize / uint64(t.dimNum)
	if coordSize == 0 {
		return fmt.Errorf("%w: cell size %d smaller than %d dimensions", ErrInvalidArgument, t.cellSize, t.dimNum)
	}

	size := b.Size()
	if size == 0 {
		return nil
	}

	scratch := buffer.New(buffer.WithController(t.rc))
	defer scratch.Clear()

	if err := scratch.Write(b.Data()); err != nil {
		return &AllocationError{Op: op, Bytes: size, Err: err}
	}

	src := scratch.Data()
	dst := b.Data()
	cellNum := size / t.cellSize
	dimNum := uint64(t.dimNum)

	for j := uint64(0); j < dimNum; j++ {
		for i := uint64(0); i < cellNum; i++ {
			dimMajor := j*cellNum*coordSize + i*coordSize
			cellMajor := i*t.cellSize + j*coordSize
			if zip {
				copy(dst[cellMajor:cellMajor+coordSize], src[dimMajor:dimMajor+coordSize])
			} else {
				copy(dst[dimMajor:dimMajor+coordSize], src[cellMajor:cellMajor+coordSize])
			}
		}
	}
	return nil
}
