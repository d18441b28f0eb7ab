// Package cellutil converts between flat cell buffers and per-cell slices.
//
// Var-sized attributes travel as an offsets buffer plus a data buffer; fixed
// cells of several elements travel as one flat buffer. The helpers here group
// such buffers into one slice per cell and build them back. Grouped slices
// alias the input and have their capacity clipped, so appending to one cell
// never overwrites the next.
package cellutil

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilestore/tile"
)

var (
	// ErrNotMultiple is returned when a buffer does not hold a whole number
	// of cells.
	ErrNotMultiple = errors.New("cellutil: buffer is not a multiple of elements per cell")

	// ErrInvalidOffsets is returned for offsets that are unsorted or point
	// past the data.
	ErrInvalidOffsets = errors.New("cellutil: invalid offsets")
)

// GroupByOffsets splits the first numData elements of data into numOffsets
// cells. Cell i spans offsets[i] up to offsets[i+1], the last cell ends at
// numData.
func GroupByOffsets[T any](offsets []uint64, data []T, numOffsets, numData uint64) ([][]T, error) {
	if numOffsets > uint64(len(offsets)) || numData > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d offsets and %d elements requested, have %d and %d",
			ErrInvalidOffsets, numOffsets, numData, len(offsets), len(data))
	}

	out := make([][]T, 0, numOffsets)
	for i := uint64(0); i < numOffsets; i++ {
		start, end := offsets[i], numData
		if i+1 < numOffsets {
			end = offsets[i+1]
		}
		if start > end || end > numData {
			return nil, fmt.Errorf("%w: cell %d spans [%d, %d) of %d", ErrInvalidOffsets, i, start, end, numData)
		}
		out = append(out, data[start:end:end])
	}
	return out, nil
}

// GroupByCell splits the first numData elements of data into cells of
// perCell elements.
func GroupByCell[T any](data []T, perCell, numData uint64) ([][]T, error) {
	if perCell == 0 {
		return nil, fmt.Errorf("%w: zero elements per cell", tile.ErrInvalidArgument)
	}
	if numData > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d elements requested, have %d", tile.ErrInvalidArgument, numData, len(data))
	}
	if uint64(len(data))%perCell != 0 || numData%perCell != 0 {
		return nil, ErrNotMultiple
	}

	out := make([][]T, 0, numData/perCell)
	for i := uint64(0); i < numData; i += perCell {
		out = append(out, data[i:i+perCell:i+perCell])
	}
	return out, nil
}

// MakeVarBuffers flattens cells into an offsets buffer and a data buffer.
func MakeVarBuffers[S ~[]E, E any](cells []S) (offsets []uint64, data []E) {
	offsets = make([]uint64, 0, len(cells))
	var total int
	for _, c := range cells {
		total += len(c)
	}
	data = make([]E, 0, total)
	for _, c := range cells {
		offsets = append(offsets, uint64(len(data)))
		data = append(data, c...)
	}
	return offsets, data
}

// TileCells groups the bytes of an unfiltered tile by its cell size.
func TileCells(t *tile.Tile) ([][]byte, error) {
	b := t.Buffer()
	if b == nil {
		return nil, nil
	}
	data := b.Data()
	return GroupByCell(data, t.CellSize(), uint64(len(data)))
}
