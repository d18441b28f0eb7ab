package buffer

import "errors"

var (
	// ErrOutOfRange is returned when a read requests bytes beyond Size.
	ErrOutOfRange = errors.New("buffer: out of range")

	// ErrTooLarge is returned when a requested capacity exceeds MaxSize.
	ErrTooLarge = errors.New("buffer: size exceeds limit")
)
