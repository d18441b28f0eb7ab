package fragment

import (
	"context"

	"github.com/hupe1980/tilestore/tile"
)

// Reader reads tiles of a committed fragment. It is safe for concurrent use.
type Reader struct {
	s    *Store
	meta *Metadata
}

// ID returns the fragment id.
func (r *Reader) ID() string { return r.meta.ID }

// Metadata returns the fragment metadata.
func (r *Reader) Metadata() *Metadata { return r.meta }

// TileIDs returns the ids of all present tiles in ascending order.
func (r *Reader) TileIDs() []uint32 { return r.meta.present.ToArray() }

// Has reports whether tile id is present.
func (r *Reader) Has(id uint32) bool { return r.meta.present.Contains(id) }

// ReadTile reads and unfilters tile id. The caller owns the returned tile.
func (r *Reader) ReadTile(ctx context.Context, id uint32) (*tile.Tile, error) {
	ti, ok := r.meta.Tile(id)
	if !ok {
		return nil, &TileError{Fragment: r.meta.ID, Tile: id, Err: ErrTileNotFound}
	}
	t, err := r.s.tio.ReadGeneric(ctx, TilesBlob(r.meta.ID), ti.Offset)
	if err != nil {
		return nil, &TileError{Fragment: r.meta.ID, Tile: id, Err: err}
	}
	return t, nil
}
