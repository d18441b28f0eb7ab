package tilestore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/filter"
	"github.com/hupe1980/tilestore/fragment"
	"github.com/hupe1980/tilestore/tile"
	"github.com/hupe1980/tilestore/tileio"
)

var (
	// ErrNotFound is returned when a blob, fragment or tile does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when persisted data fails validation.
	ErrCorrupt = errors.New("corrupt data")

	// ErrInvalidArgument is returned for invalid parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store closed")
)

// ErrTileNotFound reports a tile id missing from a fragment.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrTileNotFound struct {
	Fragment string
	Tile     uint32
	cause    error
}

func (e *ErrTileNotFound) Error() string {
	return fmt.Sprintf("tile %d not found in fragment %s", e.Tile, e.Fragment)
}

func (e *ErrTileNotFound) Unwrap() error { return e.cause }

// Is reports ErrNotFound so callers can test with errors.Is.
func (e *ErrTileNotFound) Is(target error) bool { return target == ErrNotFound }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var te *fragment.TileError
	if errors.As(err, &te) && errors.Is(te.Err, fragment.ErrTileNotFound) {
		return &ErrTileNotFound{Fragment: te.Fragment, Tile: te.Tile, cause: err}
	}

	// Not found unification.
	if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, fragment.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Integrity failures.
	if errors.Is(err, tileio.ErrCorrupt) ||
		errors.Is(err, tileio.ErrUnsupportedVersion) ||
		errors.Is(err, fragment.ErrCorrupt) ||
		errors.Is(err, filter.ErrCorrupt) ||
		errors.Is(err, filter.ErrChecksum) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if errors.Is(err, tile.ErrInvalidArgument) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
