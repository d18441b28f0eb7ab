package tileio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/filter"
	"github.com/hupe1980/tilestore/internal/cache"
	"github.com/hupe1980/tilestore/internal/conv"
	"github.com/hupe1980/tilestore/resource"
	"github.com/hupe1980/tilestore/tile"
)

type options struct {
	rc     *resource.Controller
	logger *slog.Logger
	cache  cache.Cache
	onHit  func(hit bool)
	key    []byte
}

// Option configures an IO.
type Option func(*options)

// WithController rate limits blob IO and charges tile buffers to rc.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCache caches persisted records by blob and offset.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithCacheObserver calls fn on every cache lookup with whether it hit.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(o *options) {
		o.onHit = fn
	}
}

// WithKey supplies the key for records written with an encryption filter.
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// IO writes and reads generic tiles.
// It is safe for concurrent use.
type IO struct {
	store    blobstore.BlobStore
	pipeline *filter.Pipeline
	opts     options
	group    singleflight.Group
}

// New creates an IO on store. Tiles are written through pipeline; reads use
// the pipeline recorded in each header.
func New(store blobstore.BlobStore, pipeline *filter.Pipeline, optFns ...Option) *IO {
	opts := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(&opts)
	}
	if pipeline == nil {
		pipeline = filter.NewPipeline(nil, filter.WithController(opts.rc), filter.WithLogger(opts.logger))
	}
	return &IO{store: store, pipeline: pipeline, opts: opts}
}

// Pipeline returns the write pipeline.
func (o *IO) Pipeline() *filter.Pipeline {
	return o.pipeline
}

// WriteGeneric filters t and writes its record to w. It returns the number
// of bytes written. On success t holds only the filtered bytes.
//
// Coordinate tiles with more than one dimension are split into dimension
// major order first so each dimension compresses as one run. ReadGeneric
// zips them back.
func (o *IO) WriteGeneric(ctx context.Context, w io.Writer, t *tile.Tile) (uint64, error) {
	desc, err := o.pipeline.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if _, err := conv.IntToUint32(len(desc)); err != nil {
		return 0, fmt.Errorf("tileio: pipeline descriptor: %w", err)
	}

	split := !t.Filtered() && t.DimNum() > 1
	if split {
		if err := t.UnzipCoordinates(); err != nil {
			return 0, fmt.Errorf("tileio: split coordinates: %w", err)
		}
	}
	if err := o.pipeline.Run(ctx, t); err != nil {
		// Run leaves t unfiltered; restore the caller's cell-major layout.
		if split {
			if zerr := t.ZipCoordinates(); zerr != nil {
				return 0, fmt.Errorf("tileio: filter tile: %w", errors.Join(err, zerr))
			}
		}
		return 0, fmt.Errorf("tileio: filter tile: %w", err)
	}

	filtered := t.FilteredBuffer().Data()
	h := Header{
		FormatVersion: t.FormatVersion(),
		PersistedSize: uint64(len(filtered)),
		TileSize:      t.PreFilteredSize(),
		Datatype:      t.Type(),
		CellSize:      t.CellSize(),
		DimNum:        t.DimNum(),
		Pipeline:      desc,
	}
	hdr := h.Encode(make([]byte, 0, h.Size()))

	rw := o.opts.rc.Writer(ctx, w)
	if _, err := rw.Write(hdr); err != nil {
		return 0, fmt.Errorf("tileio: write header: %w", err)
	}
	if _, err := rw.Write(filtered); err != nil {
		return 0, fmt.Errorf("tileio: write tile: %w", err)
	}

	o.opts.logger.Debug("wrote generic tile",
		"tile_size", h.TileSize,
		"persisted_size", h.PersistedSize,
		"filters", len(o.pipeline.Filters()),
	)
	return h.RecordSize(), nil
}

// PutGeneric writes t as the only record of the named blob.
func (o *IO) PutGeneric(ctx context.Context, name string, t *tile.Tile) (uint64, error) {
	w, err := o.store.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := o.WriteGeneric(ctx, w, t)
	if err != nil {
		if a, ok := w.(interface{ Abort() error }); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
			_ = o.store.Delete(ctx, name)
		}
		return 0, err
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

// ReadHeader reads the header of the record at offset.
func (o *IO) ReadHeader(ctx context.Context, name string, offset uint64) (*Header, error) {
	rec, err := o.record(ctx, name, offset)
	if err != nil {
		return nil, err
	}
	h, err := DecodeHeader(rec)
	if err != nil {
		return nil, &RecordError{Blob: name, Offset: offset, Err: err}
	}
	return h, nil
}

// ReadGeneric reads the record at offset and returns the unfiltered tile.
// The caller owns the tile and must Release it.
func (o *IO) ReadGeneric(ctx context.Context, name string, offset uint64) (*tile.Tile, error) {
	rec, err := o.record(ctx, name, offset)
	if err != nil {
		return nil, err
	}
	t, err := o.decode(ctx, rec)
	if err != nil {
		return nil, &RecordError{Blob: name, Offset: offset, Err: err}
	}
	return t, nil
}

func (o *IO) decode(ctx context.Context, rec []byte) (*tile.Tile, error) {
	h, err := DecodeHeader(rec)
	if err != nil {
		return nil, err
	}
	if uint64(len(rec)) != h.RecordSize() {
		return nil, corruptf("record of %d bytes, header says %d", len(rec), h.RecordSize())
	}

	p, err := filter.UnmarshalPipeline(h.Pipeline,
		filter.WithController(o.opts.rc),
		filter.WithLogger(o.opts.logger),
		filter.WithKey(o.opts.key),
	)
	if err != nil {
		return nil, err
	}

	t := tile.New(tile.WithController(o.opts.rc))
	if err := t.InitFiltered(h.FormatVersion, h.Datatype, h.CellSize, h.DimNum); err != nil {
		return nil, err
	}
	if err := t.FilteredBuffer().Write(rec[h.Size():]); err != nil {
		t.Release()
		return nil, &tile.AllocationError{Op: "read generic tile", Bytes: h.PersistedSize, Err: err}
	}
	t.SetPreFilteredSize(h.TileSize)

	if err := p.Reverse(ctx, t); err != nil {
		t.Release()
		return nil, err
	}
	if h.DimNum > 1 {
		if err := t.ZipCoordinates(); err != nil {
			t.Release()
			return nil, err
		}
	}
	return t, nil
}

// record returns the raw bytes of the record at offset, from the cache when
// possible. Concurrent misses for one record share a single fetch.
func (o *IO) record(ctx context.Context, name string, offset uint64) ([]byte, error) {
	key := cache.Key{Blob: name, Offset: offset}
	if o.opts.cache != nil {
		rec, ok := o.opts.cache.Get(key)
		if o.opts.onHit != nil {
			o.opts.onHit(ok)
		}
		if ok {
			return rec, nil
		}
	}

	v, err, shared := o.group.Do(name+"@"+strconv.FormatUint(offset, 10), func() (any, error) {
		rec, err := o.fetch(ctx, name, offset)
		if err != nil {
			return nil, err
		}
		if o.opts.cache != nil {
			o.opts.cache.Put(key, rec)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		o.opts.logger.Debug("shared tile fetch", "blob", name, "offset", offset)
	}
	return v.([]byte), nil
}

func (o *IO) fetch(ctx context.Context, name string, offset uint64) ([]byte, error) {
	b, err := o.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	off, err := conv.Uint64ToInt64(offset)
	if err != nil {
		return nil, &RecordError{Blob: name, Offset: offset, Err: corruptf("offset: %v", err)}
	}
	if uint64(b.Size()) < offset+FixedHeaderSize {
		return nil, &RecordError{Blob: name, Offset: offset, Err: corruptf("offset beyond blob of %d bytes", b.Size())}
	}

	fixed := make([]byte, FixedHeaderSize)
	if err := o.readAt(ctx, b, fixed, off); err != nil {
		return nil, err
	}
	h, descLen, err := decodeFixed(fixed)
	if err != nil {
		return nil, &RecordError{Blob: name, Offset: offset, Err: err}
	}

	avail := uint64(b.Size()) - offset
	if h.PersistedSize > avail {
		return nil, &RecordError{Blob: name, Offset: offset, Err: corruptf("persisted size %d overruns blob", h.PersistedSize)}
	}
	size := uint64(FixedHeaderSize) + uint64(descLen) + checksumSize + h.PersistedSize
	if avail < size {
		return nil, &RecordError{Blob: name, Offset: offset, Err: corruptf("record of %d bytes overruns blob", size)}
	}
	n, err := conv.Uint64ToInt(size)
	if err != nil {
		return nil, &RecordError{Blob: name, Offset: offset, Err: corruptf("record size: %v", err)}
	}

	rec := make([]byte, n)
	copy(rec, fixed)
	if err := o.readAt(ctx, b, rec[FixedHeaderSize:], off+FixedHeaderSize); err != nil {
		return nil, err
	}
	return rec, nil
}

func (o *IO) readAt(ctx context.Context, b blobstore.Blob, p []byte, off int64) error {
	if err := o.opts.rc.AcquireIO(ctx, len(p)); err != nil {
		return err
	}
	return blobstore.ReadFull(ctx, b, p, off)
}
