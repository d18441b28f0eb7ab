package tilestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/buffer"
	"github.com/hupe1980/tilestore/filter"
	"github.com/hupe1980/tilestore/fragment"
	"github.com/hupe1980/tilestore/internal/cache"
	"github.com/hupe1980/tilestore/tile"
	"github.com/hupe1980/tilestore/tileio"
)

// Store writes and reads filtered tiles in a blob store.
// It is safe for concurrent use.
type Store struct {
	blobs  blobstore.BlobStore
	opts   options
	cache  cache.Cache
	tio    *tileio.IO
	frags  *fragment.Store
	closed atomic.Bool
}

// Open opens a store over blobs. An empty blob store is a valid, empty
// tile store.
func Open(ctx context.Context, blobs blobstore.BlobStore, optFns ...Option) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("%w: nil blob store", ErrInvalidArgument)
	}
	opts := applyOptions(optFns)
	if opts.formatVersion == 0 || opts.formatVersion > tile.CurrentFormatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrInvalidArgument, opts.formatVersion)
	}
	if opts.cacheSize < 0 {
		return nil, fmt.Errorf("%w: cache size %d", ErrInvalidArgument, opts.cacheSize)
	}

	filters := opts.filters[:len(opts.filters):len(opts.filters)]
	if opts.key != nil {
		enc, err := filter.NewXChaCha20Poly1305(opts.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		filters = append(filters, enc)
	}

	log := opts.logger.Logger
	pipeline := filter.NewPipeline(filters,
		filter.WithController(opts.rc),
		filter.WithLogger(log),
		filter.WithKey(opts.key),
	)

	tioOpts := []tileio.Option{
		tileio.WithController(opts.rc),
		tileio.WithLogger(log),
		tileio.WithKey(opts.key),
	}

	s := &Store{blobs: blobs, opts: opts}
	if opts.cacheSize > 0 {
		s.cache = cache.NewSharded(opts.cacheSize, cache.DefaultShards, opts.rc)
		tioOpts = append(tioOpts,
			tileio.WithCache(s.cache),
			tileio.WithCacheObserver(opts.metricsCollector.RecordCacheLookup),
		)
	}
	s.tio = tileio.New(blobs, pipeline, tioOpts...)
	s.frags = fragment.NewStore(blobs, s.tio,
		fragment.WithCodec(opts.codec),
		fragment.WithLogger(log),
	)

	cur, err := s.frags.Current(ctx)
	switch {
	case err == nil:
		opts.logger.WithFragment(cur).InfoContext(ctx, "opened store", "filters", len(filters))
	case errors.Is(err, fragment.ErrNotFound):
		opts.logger.InfoContext(ctx, "opened empty store", "filters", len(filters))
	default:
		_ = s.Close()
		return nil, translateError(err)
	}
	return s, nil
}

// PutBytes writes data as a single-tile blob. The bytes are wrapped, not
// copied, and are left unchanged.
func (s *Store) PutBytes(ctx context.Context, name string, data []byte) error {
	t := tile.NewFromBuffer(s.opts.formatVersion, tile.Char, 1, 0, buffer.Wrap(data), false,
		tile.WithController(s.opts.rc))
	defer t.Release()

	_, err := s.PutTile(ctx, name, t)
	return err
}

// GetBytes returns the contents of a blob written with PutBytes.
func (s *Store) GetBytes(ctx context.Context, name string) ([]byte, error) {
	t, err := s.GetTile(ctx, name)
	if err != nil {
		return nil, err
	}
	defer t.Release()
	if b := t.Buffer(); b != nil {
		return bytes.Clone(b.Data()), nil
	}
	return nil, nil
}

// PutTile filters t and writes it as the only record of the named blob.
// It returns the record size. On success t holds only the filtered bytes.
func (s *Store) PutTile(ctx context.Context, name string, t *tile.Tile) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	start := time.Now()
	n, err := s.tio.PutGeneric(ctx, name, t)
	d := time.Since(start)
	s.opts.metricsCollector.RecordTileWrite(n, d, err)
	s.opts.logger.LogTileWrite(ctx, name, n, d, err)
	return n, translateError(err)
}

// GetTile reads the tile of a blob written with PutTile. The caller owns
// the returned tile.
func (s *Store) GetTile(ctx context.Context, name string) (*tile.Tile, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	t, err := s.tio.ReadGeneric(ctx, name, 0)
	var n uint64
	if err == nil {
		n = t.Size()
	}
	d := time.Since(start)
	s.opts.metricsCollector.RecordTileRead(n, d, err)
	s.opts.logger.LogTileRead(ctx, name, n, d, err)
	if err != nil {
		return nil, translateError(err)
	}
	return t, nil
}

// NewFragment starts a fragment. Pass it to Commit when all tiles are
// written, or call Abort on it to discard it.
func (s *Store) NewFragment(ctx context.Context) (*fragment.Writer, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	w, err := s.frags.NewWriter(ctx)
	return w, translateError(err)
}

// Commit commits w and makes it the current fragment.
func (s *Store) Commit(ctx context.Context, w *fragment.Writer) (*fragment.Metadata, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	tiles := w.Len()
	m, err := w.Commit(ctx)
	d := time.Since(start)
	s.opts.metricsCollector.RecordCommit(tiles, d, err)
	s.opts.logger.LogCommit(ctx, w.ID(), tiles, d, err)
	return m, translateError(err)
}

// OpenFragment opens the current fragment. Use it to read many tiles
// without reloading fragment metadata.
func (s *Store) OpenFragment(ctx context.Context) (*fragment.Reader, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	r, err := s.frags.Open(ctx)
	return r, translateError(err)
}

// ReadTile reads tile id of the current fragment.
func (s *Store) ReadTile(ctx context.Context, id uint32) (*tile.Tile, error) {
	r, err := s.OpenFragment(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	t, err := r.ReadTile(ctx, id)
	var n uint64
	if err == nil {
		n = t.Size()
	}
	d := time.Since(start)
	blob := fragment.TilesBlob(r.ID())
	s.opts.metricsCollector.RecordTileRead(n, d, err)
	s.opts.logger.WithTile(blob, id).LogTileRead(ctx, blob, n, d, err)
	if err != nil {
		return nil, translateError(err)
	}
	return t, nil
}

// DeleteFragment deletes fragment id and drops its cached tiles. The current
// fragment cannot be deleted.
func (s *Store) DeleteFragment(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.frags.Delete(ctx, id); err != nil {
		return translateError(err)
	}
	if s.cache != nil {
		s.cache.DropBlob(fragment.TilesBlob(id))
	}
	return nil
}

// Fragments returns the fragment store for listing and inspecting fragments.
func (s *Store) Fragments() *fragment.Store {
	return s.frags
}

// CacheStats returns tile cache hits and misses. Both are zero without a
// cache.
func (s *Store) CacheStats() (hits, misses int64) {
	if s.cache == nil {
		return 0, 0
	}
	st := s.cache.Stats()
	return st.Hits, st.Misses
}

// Close releases the tile cache. Further operations return ErrClosed.
func (s *Store) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
