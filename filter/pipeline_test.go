package filter

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/buffer"
	"github.com/hupe1980/tilestore/resource"
	"github.com/hupe1980/tilestore/testutil"
	"github.com/hupe1980/tilestore/tile"
)

func newTile(t *testing.T, data []byte, cellSize uint64, typ tile.Datatype) *tile.Tile {
	t.Helper()

	tl := tile.New()
	require.NoError(t, tl.InitUnfiltered(tile.CurrentFormatVersion, typ, uint64(len(data)), cellSize, 0, false))
	require.NoError(t, tl.Write(data))
	t.Cleanup(tl.Release)
	return tl
}

func int64Data(n int) []byte {
	out := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		out = binary.LittleEndian.AppendUint64(out, uint64(i*i))
	}
	return out
}

func TestPipeline_RoundTrip(t *testing.T) {
	ctx := context.Background()
	enc, err := NewXChaCha20Poly1305(bytes.Repeat([]byte{3}, KeySize))
	require.NoError(t, err)

	pipelines := map[string][]Filter{
		"empty":       nil,
		"zstd":        {NewZSTD(0)},
		"shuffle-lz4": {Shuffle{}, LZ4{}, CRC32C{}},
		"full":        {Shuffle{}, NewZSTD(3), BLAKE3{}, enc},
		"gzip-s2":     {NewGZIP(6), S2{}},
	}

	// 40000 int64 cells span several 64 KiB chunks.
	data := int64Data(40000)

	for name, filters := range pipelines {
		t.Run(name, func(t *testing.T) {
			tl := newTile(t, data, 8, tile.Int64)
			p := NewPipeline(filters, WithController(resource.NewController(resource.Config{MaxWorkers: 4})))

			require.NoError(t, p.Run(ctx, tl))
			assert.True(t, tl.Filtered())
			assert.Nil(t, tl.Buffer())
			assert.Equal(t, uint64(len(data)), tl.PreFilteredSize())

			numChunks := binary.LittleEndian.Uint64(tl.FilteredBuffer().Data())
			assert.Equal(t, uint64(5), numChunks)

			require.NoError(t, p.Reverse(ctx, tl))
			assert.False(t, tl.Filtered())
			assert.True(t, tl.OwnsBuffer())
			assert.Equal(t, data, tl.Buffer().Data())
			assert.Zero(t, tl.Offset())
		})
	}
}

func TestPipeline_ChunkSizes(t *testing.T) {
	// 100 cells of 12 bytes: one chunk holding all of them.
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 100)
	tl := newTile(t, data, 12, tile.Uint8)

	p := NewPipeline(nil)
	require.NoError(t, p.Run(context.Background(), tl))

	chunks, err := decodeChunks(tl.FilteredBuffer().Data(), 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, len(data), chunks[0].origLen)
}

func TestPipeline_EmptyTile(t *testing.T) {
	ctx := context.Background()
	tl := tile.New()
	require.NoError(t, tl.InitUnfiltered(tile.CurrentFormatVersion, tile.Int32, 64, 4, 0, false))
	defer tl.Release()

	p := NewPipeline([]Filter{LZ4{}})
	require.NoError(t, p.Run(ctx, tl))
	assert.True(t, tl.Filtered())
	assert.Zero(t, tl.PreFilteredSize())

	require.NoError(t, p.Reverse(ctx, tl))
	assert.True(t, tl.Empty())
}

func TestPipeline_StateErrors(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(nil)

	unfiltered := newTile(t, []byte{1, 2, 3, 4}, 4, tile.Int32)
	require.ErrorIs(t, p.Reverse(ctx, unfiltered), tile.ErrInvalidState)

	filtered := tile.New()
	require.NoError(t, filtered.InitFiltered(tile.CurrentFormatVersion, tile.Int32, 4, 0))
	defer filtered.Release()
	require.ErrorIs(t, p.Run(ctx, filtered), tile.ErrInvalidState)
}

func TestPipeline_ChecksumFailureKeepsFilteredBytes(t *testing.T) {
	ctx := context.Background()
	tl := newTile(t, int64Data(100), 8, tile.Int64)

	p := NewPipeline([]Filter{CRC32C{}})
	require.NoError(t, p.Run(ctx, tl))

	fb := tl.FilteredBuffer().Data()
	fb[len(fb)-1] ^= 0xff

	err := p.Reverse(ctx, tl)
	require.ErrorIs(t, err, ErrChecksum)

	var chunkErr *ChunkError
	require.True(t, errors.As(err, &chunkErr))
	assert.Equal(t, TypeCRC32C, chunkErr.Filter)
	assert.True(t, tl.Filtered())
}

func TestPipeline_MismatchedFilters(t *testing.T) {
	ctx := context.Background()
	tl := newTile(t, int64Data(10), 8, tile.Int64)

	require.NoError(t, NewPipeline([]Filter{LZ4{}}).Run(ctx, tl))
	require.ErrorIs(t, NewPipeline(nil).Reverse(ctx, tl), ErrCorrupt)
}

func TestPipeline_PreFilteredSizeMismatch(t *testing.T) {
	ctx := context.Background()
	tl := newTile(t, int64Data(10), 8, tile.Int64)

	p := NewPipeline(nil)
	require.NoError(t, p.Run(ctx, tl))
	tl.SetPreFilteredSize(1)
	require.ErrorIs(t, p.Reverse(ctx, tl), ErrCorrupt)
}

func TestPipeline_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := int64Data(40000)
	tl := newTile(t, data, 8, tile.Int64)

	err := NewPipeline([]Filter{LZ4{}}).Run(ctx, tl)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, tl.Filtered())
	assert.Equal(t, data, tl.Buffer().Data())
}

func TestPipeline_MemoryLimit(t *testing.T) {
	data := int64Data(100)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	tl := tile.NewFromBuffer(tile.CurrentFormatVersion, tile.Int64, 8, 0, buffer.Wrap(data), false)

	err := NewPipeline(nil, WithController(rc)).Run(context.Background(), tl)
	require.ErrorIs(t, err, tile.ErrAllocation)
	assert.False(t, tl.Filtered())
}

func TestPipeline_SharedWorkerSlots(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MaxWorkers: 1})
	p := NewPipeline([]Filter{Shuffle{}, LZ4{}}, WithController(rc))

	data := int64Data(40000)
	tiles := make([]*tile.Tile, 4)
	for i := range tiles {
		tiles[i] = newTile(t, data, 8, tile.Int64)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(tiles))
	for i, tl := range tiles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errs[i] = p.Run(ctx, tl); errs[i] == nil {
				errs[i] = p.Reverse(ctx, tl)
			}
		}()
	}
	wg.Wait()

	for i, tl := range tiles {
		require.NoError(t, errs[i])
		assert.Equal(t, data, tl.Buffer().Data())
	}
	// Every slot was returned.
	require.NoError(t, rc.AcquireWorker(ctx))
	rc.ReleaseWorker()
}

func TestPipeline_BorrowedBufferIsNotFreed(t *testing.T) {
	data := int64Data(100)
	b := buffer.Wrap(bytes.Clone(data))
	tl := tile.NewFromBuffer(tile.CurrentFormatVersion, tile.Int64, 8, 0, b, false)

	require.NoError(t, NewPipeline([]Filter{S2{}}).Run(context.Background(), tl))
	assert.Nil(t, tl.Buffer())
	assert.Equal(t, data, b.Data())
	tl.Release()
}

func TestDecodeChunks_Truncated(t *testing.T) {
	tl := newTile(t, int64Data(10), 8, tile.Int64)
	require.NoError(t, NewPipeline([]Filter{CRC32C{}}).Run(context.Background(), tl))

	data := tl.FilteredBuffer().Data()
	for _, n := range []int{0, 4, 8, 15, len(data) - 1} {
		_, err := decodeChunks(data[:n], 1)
		require.ErrorIs(t, err, ErrCorrupt, "prefix %d", n)
	}

	_, err := decodeChunks(append(bytes.Clone(data), 0), 1)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestPipeline_GeneratedPayloads(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(2024)

	payloads := []struct {
		name     string
		data     []byte
		cellSize uint64
		typ      tile.Datatype
	}{
		{"random", rng.Bytes(100_000), 1, tile.Uint8},
		{"int32", rng.Int32Cells(30_000, 1000), 4, tile.Int32},
		{"float64", rng.Float64Cells(20_000, 100, 15), 8, tile.Float64},
		{"zipf", rng.ZipfCells(20_000, 1.3, 1<<20), 8, tile.Uint64},
	}

	for _, p := range payloads {
		t.Run(p.name, func(t *testing.T) {
			pl := NewPipeline([]Filter{Shuffle{}, NewZSTD(3), CRC32C{}})
			tl := newTile(t, p.data, p.cellSize, p.typ)

			require.NoError(t, pl.Run(ctx, tl))
			require.NoError(t, pl.Reverse(ctx, tl))
			assert.Equal(t, p.data, tl.Buffer().Data())
		})
	}
}
