package fragment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/tile"
)

// Writer appends tiles to a new fragment. Nothing is visible to readers
// until Commit. A failed WriteTile aborts the fragment.
type Writer struct {
	s    *Store
	id   string
	blob blobstore.WritableBlob

	mu     sync.Mutex
	offset uint64
	tiles  []TileInfo
	ids    *roaring.Bitmap
	closed bool
}

func newWriter(s *Store, id string, blob blobstore.WritableBlob) *Writer {
	return &Writer{s: s, id: id, blob: blob, ids: roaring.New()}
}

// ID returns the fragment id.
func (w *Writer) ID() string { return w.id }

// Len returns the number of tiles written so far.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tiles)
}

// WriteTile filters t and appends it under id. On success t holds only
// the filtered bytes.
func (w *Writer) WriteTile(ctx context.Context, id uint32, t *tile.Tile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.ids.Contains(id) {
		return &TileError{Fragment: w.id, Tile: id, Err: ErrDuplicateTile}
	}
	if t.Filtered() {
		return &TileError{Fragment: w.id, Tile: id, Err: fmt.Errorf("%w: tile already filtered", tile.ErrInvalidState)}
	}

	tileSize := t.Size()
	n, err := w.s.tio.WriteGeneric(ctx, w.blob, t)
	if err != nil {
		// The blob may hold a partial record now.
		w.abortLocked(ctx)
		return &TileError{Fragment: w.id, Tile: id, Err: err}
	}

	w.tiles = append(w.tiles, TileInfo{
		ID:         id,
		Offset:     w.offset,
		RecordSize: n,
		TileSize:   tileSize,
	})
	w.ids.Add(id)
	w.offset += n
	return nil
}

// Commit makes the fragment durable and current.
func (w *Writer) Commit(ctx context.Context) (*Metadata, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	w.closed = true

	if err := w.blob.Sync(); err != nil {
		_ = w.blob.Close()
		w.cleanup(ctx)
		return nil, fmt.Errorf("fragment %s: sync tiles: %w", w.id, err)
	}
	if err := w.blob.Close(); err != nil {
		w.cleanup(ctx)
		return nil, fmt.Errorf("fragment %s: close tiles: %w", w.id, err)
	}

	m := &Metadata{
		Version:   CurrentVersion,
		ID:        w.id,
		CreatedAt: time.Now().UTC(),
		Tiles:     w.tiles,
		TotalSize: w.offset,
		present:   w.ids,
	}
	desc, err := w.s.tio.Pipeline().MarshalBinary()
	if err != nil {
		w.cleanup(ctx)
		return nil, err
	}
	m.Pipeline = desc

	if err := w.s.commit(ctx, m); err != nil {
		w.cleanup(ctx)
		return nil, err
	}
	m.buildIndex()
	return m, nil
}

// Abort discards the fragment. It is a no-op after Commit.
func (w *Writer) Abort(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.abortLocked(ctx)
	return nil
}

func (w *Writer) abortLocked(ctx context.Context) {
	w.closed = true
	if a, ok := w.blob.(interface{ Abort() error }); ok {
		_ = a.Abort()
	} else {
		_ = w.blob.Close()
	}
	w.cleanup(ctx)
	w.s.opts.logger.Warn("aborted fragment", "fragment", w.id, "tiles", len(w.tiles))
}

func (w *Writer) cleanup(ctx context.Context) {
	_ = w.s.store.Delete(ctx, MetaBlob(w.id))
	_ = w.s.store.Delete(ctx, TilesBlob(w.id))
}
