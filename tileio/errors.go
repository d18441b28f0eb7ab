package tileio

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when a persisted tile record cannot be parsed.
	ErrCorrupt = errors.New("tileio: corrupt tile record")

	// ErrUnsupportedVersion is returned for records newer than this package.
	ErrUnsupportedVersion = errors.New("tileio: unsupported format version")
)

// RecordError reports a failure for the record at Blob/Offset.
//
// The original underlying error can be accessed via errors.Unwrap.
type RecordError struct {
	Blob   string
	Offset uint64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("tileio: %s@%d: %v", e.Blob, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...)
}
