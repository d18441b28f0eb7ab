package filter

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tilestore/buffer"
	"github.com/hupe1980/tilestore/resource"
	"github.com/hupe1980/tilestore/tile"
)

const (
	numChunksSize   = 8
	chunkHeaderSize = 12
	metaHeaderSize  = 4
)

type options struct {
	rc     *resource.Controller
	logger *slog.Logger
	key    []byte
}

// Option configures a Pipeline.
type Option func(*options)

// WithController draws a worker slot from rc for every chunk in flight, so
// pipelines sharing rc never filter more than rc.MaxWorkers chunks at once.
// Output buffers are charged to rc.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLogger sets the logger for pipeline diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKey supplies the encryption key when a descriptor is decoded.
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// Pipeline is an ordered list of filters applied chunk by chunk.
// A Pipeline is safe for concurrent use by multiple goroutines as long as
// each goroutine works on its own tile.
type Pipeline struct {
	filters []Filter
	opts    options
}

// NewPipeline returns a pipeline running filters in the given order.
// An empty pipeline still chunks the data.
func NewPipeline(filters []Filter, optFns ...Option) *Pipeline {
	opts := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{filters: filters, opts: opts}
}

// Filters returns the filters in application order.
func (p *Pipeline) Filters() []Filter {
	return p.filters
}

func (p *Pipeline) workers() int {
	if n := p.opts.rc.MaxWorkers(); n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

type chunk struct {
	origLen int
	data    []byte
	metas   [][]byte
}

// Run filters an unfiltered tile in place. On success the tile holds only
// the filtered bytes and its pre-filtered size records the original length.
// On error the tile is left unfiltered and unchanged.
func (p *Pipeline) Run(ctx context.Context, t *tile.Tile) error {
	if t.Filtered() {
		return fmt.Errorf("%w: pipeline run on a filtered tile", tile.ErrInvalidState)
	}

	var data []byte
	if b := t.Buffer(); b != nil {
		data = b.Data()
	}

	in, err := splitChunks(data, t)
	if err != nil {
		return err
	}

	elemSize := elementSize(t)
	out := make([]chunk, len(in))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, c := range in {
		g.Go(func() error {
			if err := p.opts.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer p.opts.rc.ReleaseWorker()
			filtered, err := p.forward(i, c, elemSize)
			out[i] = filtered
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fb, err := p.encodeChunks(out)
	if err != nil {
		return err
	}

	t.DropUnfiltered()
	t.FilteredBuffer().Clear()
	t.FilteredBuffer().Swap(fb)
	t.SetPreFilteredSize(uint64(len(data)))

	p.opts.logger.Debug("filtered tile",
		"chunks", len(out),
		"size", len(data),
		"filtered_size", t.FilteredBuffer().Size())
	return nil
}

func (p *Pipeline) forward(i int, c []byte, elemSize int) (chunk, error) {
	res := chunk{origLen: len(c), metas: make([][]byte, len(p.filters))}
	cur := c
	for k, f := range p.filters {
		out, meta, err := f.Forward(cur, elemSize)
		if err != nil {
			return chunk{}, &ChunkError{Chunk: i, Filter: f.Type(), Err: err}
		}
		cur = out
		res.metas[k] = meta
	}
	res.data = cur
	return res, nil
}

func (p *Pipeline) encodeChunks(chunks []chunk) (*buffer.Buffer, error) {
	total := uint64(numChunksSize)
	for _, c := range chunks {
		total += chunkHeaderSize + uint64(metaLen(c.metas)) + uint64(len(c.data))
	}

	out := buffer.New(buffer.WithController(p.opts.rc))
	if err := out.Realloc(total); err != nil {
		return nil, &tile.AllocationError{Op: "filter", Bytes: total, Err: err}
	}

	hdr := make([]byte, 0, chunkHeaderSize)
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(len(chunks)))
	write := func(b []byte) {
		// capacity is reserved above, so Write cannot fail
		_ = out.Write(b)
	}
	write(hdr)

	for _, c := range chunks {
		hdr = hdr[:0]
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(c.origLen))
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(c.data)))
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(metaLen(c.metas)))
		write(hdr)
		for _, m := range c.metas {
			write(binary.LittleEndian.AppendUint32(hdr[:0], uint32(len(m))))
			write(m)
		}
		write(c.data)
	}
	return out, nil
}

func metaLen(metas [][]byte) int {
	n := 0
	for _, m := range metas {
		n += metaHeaderSize + len(m)
	}
	return n
}

// Reverse restores the unfiltered bytes of a filtered tile. On error the tile
// keeps its filtered bytes.
func (p *Pipeline) Reverse(ctx context.Context, t *tile.Tile) error {
	if !t.Filtered() {
		return fmt.Errorf("%w: pipeline reverse on an unfiltered tile", tile.ErrInvalidState)
	}

	chunks, err := decodeChunks(t.FilteredBuffer().Data(), len(p.filters))
	if err != nil {
		return err
	}

	offsets := make([]uint64, len(chunks))
	var total uint64
	for i, c := range chunks {
		offsets[i] = total
		total += uint64(c.origLen)
	}
	if total != t.PreFilteredSize() {
		return corruptf("chunks hold %d bytes, tile records %d", total, t.PreFilteredSize())
	}

	out := buffer.New(buffer.WithController(p.opts.rc))
	if err := out.Realloc(total); err != nil {
		return &tile.AllocationError{Op: "unfilter", Bytes: total, Err: err}
	}
	out.SetSize(total)
	dst := out.Data()

	elemSize := elementSize(t)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, c := range chunks {
		g.Go(func() error {
			if err := p.opts.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer p.opts.rc.ReleaseWorker()
			return p.reverse(i, c, elemSize, dst[offsets[i]:offsets[i]+uint64(c.origLen)])
		})
	}
	if err := g.Wait(); err != nil {
		out.Clear()
		return err
	}

	t.AdoptUnfiltered(out)

	p.opts.logger.Debug("unfiltered tile", "chunks", len(chunks), "size", total)
	return nil
}

func (p *Pipeline) reverse(i int, c chunk, elemSize int, dst []byte) error {
	cur := c.data
	for k := len(p.filters) - 1; k >= 0; k-- {
		f := p.filters[k]
		out, err := f.Reverse(cur, c.metas[k], elemSize)
		if err != nil {
			return &ChunkError{Chunk: i, Filter: f.Type(), Err: err}
		}
		cur = out
	}
	if len(cur) != len(dst) {
		return &ChunkError{Chunk: i, Filter: TypeNone, Err: corruptf("restored %d bytes, want %d", len(cur), len(dst))}
	}
	copy(dst, cur)
	return nil
}

// decodeChunks parses the filtered layout. The returned chunks alias data.
func decodeChunks(data []byte, numFilters int) ([]chunk, error) {
	r := &reader{data: data}
	n := r.u64()
	if r.err != nil {
		return nil, r.err
	}
	// every chunk needs at least its header
	if n > uint64(len(data))/chunkHeaderSize {
		return nil, corruptf("%d chunks in %d bytes", n, len(data))
	}

	chunks := make([]chunk, n)
	for i := range chunks {
		origLen := r.u32()
		dataLen := r.u32()
		metaBytes := r.bytes(int(r.u32()))

		m := &reader{data: metaBytes}
		metas := make([][]byte, 0, numFilters)
		for m.err == nil && len(m.data) > 0 {
			metas = append(metas, m.bytes(int(m.u32())))
		}
		if m.err != nil {
			return nil, m.err
		}
		if len(metas) != numFilters {
			return nil, corruptf("chunk %d carries metadata for %d filters, pipeline has %d", i, len(metas), numFilters)
		}

		chunks[i] = chunk{origLen: int(origLen), data: r.bytes(int(dataLen)), metas: metas}
		if r.err != nil {
			return nil, r.err
		}
	}
	if len(r.data) != 0 {
		return nil, corruptf("%d trailing bytes", len(r.data))
	}
	return chunks, nil
}

func splitChunks(data []byte, t *tile.Tile) ([][]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	size, err := tile.ComputeChunkSize(uint64(len(data)), t.DimNum(), t.CellSize())
	if err != nil {
		return nil, err
	}

	chunkSize := int(size)
	chunks := make([][]byte, 0, (len(data)+chunkSize-1)/chunkSize)
	for off := 0; off < len(data); off += chunkSize {
		chunks = append(chunks, data[off:min(off+chunkSize, len(data))])
	}
	return chunks, nil
}

func elementSize(t *tile.Tile) int {
	if n := t.Type().Size(); n > 0 {
		return int(n)
	}
	return 1
}
