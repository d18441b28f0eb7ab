package tile

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is returned when a buffer cannot be allocated or grown.
	ErrAllocation = errors.New("tile: allocation failed")

	// ErrRange is returned when a read or write exceeds the buffer bounds.
	ErrRange = errors.New("tile: out of range")

	// ErrOverflow is returned when a chunk size exceeds what a chunk header can hold.
	ErrOverflow = errors.New("tile: overflow")

	// ErrInvalidState marks a caller that violated the tile state machine.
	// It is raised with panic, never returned by tile operations.
	ErrInvalidState = errors.New("tile: invalid state")

	// ErrInvalidArgument is returned for inputs that cannot describe a tile.
	ErrInvalidArgument = errors.New("tile: invalid argument")
)

// AllocationError reports a failed buffer allocation.
//
// The original underlying error can be accessed via errors.Unwrap.
type AllocationError struct {
	Op    string
	Bytes uint64
	Err   error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("tile: %s: cannot allocate %d bytes: %v", e.Op, e.Bytes, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Is matches ErrAllocation.
func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

// RangeError reports a read or write outside the buffer.
//
// The original underlying error can be accessed via errors.Unwrap.
type RangeError struct {
	Op     string
	Offset uint64
	Bytes  uint64
	Err    error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("tile: %s of %d bytes at offset %d: %v", e.Op, e.Bytes, e.Offset, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

// Is matches ErrRange.
func (e *RangeError) Is(target error) bool { return target == ErrRange }

// OverflowError reports a chunk size that does not fit in 32 bits.
type OverflowError struct {
	ChunkSize uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("tile: chunk size %d exceeds uint32", e.ChunkSize)
}

// Is matches ErrOverflow.
func (e *OverflowError) Is(target error) bool { return target == ErrOverflow }

// InvalidStateError is the panic value for state machine violations, such as
// reading a filtered tile or zipping a tile without dimensions.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("tile: %s: %s", e.Op, e.Reason)
}

// Is matches ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

func invalidState(op, reason string) {
	panic(&InvalidStateError{Op: op, Reason: reason})
}
