package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when filtered bytes cannot be parsed.
	ErrCorrupt = errors.New("filter: corrupt data")

	// ErrChecksum is returned when a checksum filter detects a mismatch.
	ErrChecksum = errors.New("filter: checksum mismatch")

	// ErrUnknownFilter is returned for a descriptor naming an unknown filter.
	ErrUnknownFilter = errors.New("filter: unknown filter")

	// ErrMissingKey is returned when an encryption filter has no key.
	ErrMissingKey = errors.New("filter: missing encryption key")
)

// ChunkError reports a failure while filtering one chunk.
//
// The original underlying error can be accessed via errors.Unwrap.
type ChunkError struct {
	Chunk  int
	Filter Type
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("filter: chunk %d: %s: %v", e.Chunk, e.Filter, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...)
}
