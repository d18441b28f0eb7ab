package fragment

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilestore/codec"
)

var (
	// ErrNotFound is returned when no fragment has been committed or the
	// named fragment does not exist.
	ErrNotFound = errors.New("fragment: not found")

	// ErrTileNotFound is returned when a tile id is not present in a fragment.
	ErrTileNotFound = errors.New("fragment: tile not found")

	// ErrDuplicateTile is returned when a tile id is written twice.
	ErrDuplicateTile = errors.New("fragment: duplicate tile")

	// ErrClosed is returned when a writer is used after Commit or Abort.
	ErrClosed = errors.New("fragment: writer closed")

	// ErrCorrupt is returned when fragment metadata cannot be decoded.
	ErrCorrupt = errors.New("fragment: corrupt metadata")

	// ErrUnknownCodec is returned when metadata names a codec this build
	// does not know.
	ErrUnknownCodec = codec.ErrUnknownCodec

	// ErrInUse is returned when deleting the fragment CURRENT points at.
	ErrInUse = errors.New("fragment: fragment is current")
)

// TileError reports a failure on a single tile of a fragment.
type TileError struct {
	Fragment string
	Tile     uint32
	Err      error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("fragment %s: tile %d: %v", e.Fragment, e.Tile, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }
