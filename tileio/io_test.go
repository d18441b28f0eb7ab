package tileio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/buffer"
	"github.com/hupe1980/tilestore/filter"
	"github.com/hupe1980/tilestore/internal/cache"
	"github.com/hupe1980/tilestore/resource"
	"github.com/hupe1980/tilestore/tile"
)

func float64Tile(t *testing.T, n int) (*tile.Tile, []byte) {
	t.Helper()

	data := make([]byte, 0, n*8)
	for i := range n {
		data = binary.LittleEndian.AppendUint64(data, uint64(i)*3)
	}

	tl := tile.New()
	require.NoError(t, tl.InitUnfiltered(tile.CurrentFormatVersion, tile.Float64, uint64(len(data)), 8, 1, false))
	require.NoError(t, tl.Write(data))
	t.Cleanup(tl.Release)
	return tl, data
}

func TestIO_PutReadGeneric(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	p := filter.NewPipeline([]filter.Filter{filter.Shuffle{}, filter.NewZSTD(3), filter.CRC32C{}})
	tio := New(store, p)

	tl, data := float64Tile(t, 20000)
	n, err := tio.PutGeneric(ctx, "schema", tl)
	require.NoError(t, err)
	assert.True(t, tl.Filtered())

	b, err := store.Open(ctx, "schema")
	require.NoError(t, err)
	assert.Equal(t, int64(n), b.Size())
	require.NoError(t, b.Close())

	h, err := tio.ReadHeader(ctx, "schema", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), h.TileSize)
	assert.Equal(t, tile.Float64, h.Datatype)
	assert.Equal(t, uint64(8), h.CellSize)
	assert.Equal(t, uint32(1), h.DimNum)
	assert.Equal(t, n, h.RecordSize())
	assert.Less(t, h.PersistedSize, h.TileSize)

	got, err := tio.ReadGeneric(ctx, "schema", 0)
	require.NoError(t, err)
	defer got.Release()

	assert.False(t, got.Filtered())
	assert.Equal(t, data, got.Buffer().Data())
	assert.Equal(t, tile.Float64, got.Type())
	assert.Equal(t, uint64(20000), got.CellNum())
	assert.Equal(t, tile.CurrentFormatVersion, got.FormatVersion())
}

func TestIO_WriteGenericAppendsRecords(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tio := New(store, filter.NewPipeline([]filter.Filter{filter.LZ4{}}))

	w, err := store.Create(ctx, "frag/tiles")
	require.NoError(t, err)

	var offsets []uint64
	var payloads [][]byte
	var off uint64
	for i := range 3 {
		tl, data := float64Tile(t, 100*(i+1))
		n, err := tio.WriteGeneric(ctx, w, tl)
		require.NoError(t, err)
		offsets = append(offsets, off)
		payloads = append(payloads, data)
		off += n
	}
	require.NoError(t, w.Close())

	for i := len(offsets) - 1; i >= 0; i-- {
		got, err := tio.ReadGeneric(ctx, "frag/tiles", offsets[i])
		require.NoError(t, err)
		assert.Equal(t, payloads[i], got.Buffer().Data())
		got.Release()
	}
}

func TestIO_BorrowedTile(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tio := New(store, nil)

	payload := []byte("array schema bytes")
	buf := buffer.Wrap(bytes.Clone(payload))
	tl := tile.NewFromBuffer(tile.CurrentFormatVersion, tile.Char, 1, 0, buf, false)
	defer tl.Release()

	_, err := tio.PutGeneric(ctx, "__array_schema.tdb", tl)
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Data(), "caller buffer must be untouched")

	got, err := tio.ReadGeneric(ctx, "__array_schema.tdb", 0)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, payload, got.Buffer().Data())
}

func TestIO_EmptyTile(t *testing.T) {
	ctx := context.Background()
	tio := New(blobstore.NewMemoryStore(), nil)

	tl := tile.New()
	require.NoError(t, tl.InitUnfiltered(tile.CurrentFormatVersion, tile.Uint8, 0, 1, 0, false))
	defer tl.Release()

	_, err := tio.PutGeneric(ctx, "empty", tl)
	require.NoError(t, err)

	got, err := tio.ReadGeneric(ctx, "empty", 0)
	require.NoError(t, err)
	defer got.Release()
	assert.Zero(t, got.Size())
}

func TestIO_Encrypted(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	key := bytes.Repeat([]byte{7}, filter.KeySize)
	enc, err := filter.NewXChaCha20Poly1305(key)
	require.NoError(t, err)

	writer := New(store, filter.NewPipeline([]filter.Filter{filter.S2{}, enc}))
	tl, data := float64Tile(t, 1000)
	_, err = writer.PutGeneric(ctx, "secret", tl)
	require.NoError(t, err)

	_, err = New(store, nil).ReadGeneric(ctx, "secret", 0)
	require.ErrorIs(t, err, filter.ErrMissingKey)

	wrong := New(store, nil, WithKey(bytes.Repeat([]byte{8}, filter.KeySize)))
	_, err = wrong.ReadGeneric(ctx, "secret", 0)
	require.ErrorIs(t, err, filter.ErrChecksum)

	reader := New(store, nil, WithKey(key))
	got, err := reader.ReadGeneric(ctx, "secret", 0)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, data, got.Buffer().Data())
}

func TestIO_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tio := New(store, filter.NewPipeline([]filter.Filter{filter.CRC32C{}}))

	tl, _ := float64Tile(t, 64)
	n, err := tio.PutGeneric(ctx, "t", tl)
	require.NoError(t, err)

	raw, err := blobstore.ReadAll(ctx, store, "t")
	require.NoError(t, err)

	t.Run("PayloadBitFlip", func(t *testing.T) {
		bad := bytes.Clone(raw)
		bad[len(bad)-1] ^= 0xff
		require.NoError(t, store.Put(ctx, "bad", bad))

		_, err := tio.ReadGeneric(ctx, "bad", 0)
		require.ErrorIs(t, err, filter.ErrChecksum)

		var recErr *RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, "bad", recErr.Blob)
	})

	t.Run("Truncated", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "short", raw[:n-1]))
		_, err := tio.ReadGeneric(ctx, "short", 0)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("OffsetPastEnd", func(t *testing.T) {
		_, err := tio.ReadGeneric(ctx, "t", n)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("HugeOffset", func(t *testing.T) {
		_, err := tio.ReadGeneric(ctx, "t", math.MaxUint64)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("HugePersistedSize", func(t *testing.T) {
		bad := bytes.Clone(raw)
		binary.LittleEndian.PutUint64(bad[8:], math.MaxUint64)
		require.NoError(t, store.Put(ctx, "huge", bad))

		_, err := tio.ReadGeneric(ctx, "huge", 0)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := tio.ReadGeneric(ctx, "missing", 0)
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}

func TestIO_FilteredTileRejected(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tio := New(store, nil)

	tl := tile.New()
	require.NoError(t, tl.InitFiltered(tile.CurrentFormatVersion, tile.Int32, 4, 1))
	defer tl.Release()

	_, err := tio.PutGeneric(ctx, "x", tl)
	require.ErrorIs(t, err, tile.ErrInvalidState)

	_, err = store.Open(ctx, "x")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

type countingStore struct {
	blobstore.BlobStore
	mu    sync.Mutex
	opens int
}

func (s *countingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
	return s.BlobStore.Open(ctx, name)
}

func TestIO_Cache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{BlobStore: blobstore.NewMemoryStore()}
	rc := resource.NewController(resource.Config{})
	c := cache.NewSharded(64<<20, 0, rc)
	var observed []bool
	tio := New(store, filter.NewPipeline([]filter.Filter{filter.NewZSTD(1)}),
		WithCache(c), WithController(rc),
		WithCacheObserver(func(hit bool) { observed = append(observed, hit) }))

	tl, data := float64Tile(t, 500)
	_, err := tio.PutGeneric(ctx, "cached", tl)
	require.NoError(t, err)

	for range 3 {
		got, err := tio.ReadGeneric(ctx, "cached", 0)
		require.NoError(t, err)
		assert.Equal(t, data, got.Buffer().Data())
		got.Release()
	}

	assert.Equal(t, 1, store.opens)
	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, []bool{false, true, true}, observed)
}

func TestIO_ConcurrentReads(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{MaxWorkers: 2, IOLimitBytesPerSec: 1 << 30})
	tio := New(store, filter.NewPipeline([]filter.Filter{filter.Shuffle{}, filter.LZ4{}}, filter.WithController(rc)),
		WithController(rc), WithCache(cache.NewLRU(1<<20, rc)))

	tl, data := float64Tile(t, 4096)
	_, err := tio.PutGeneric(ctx, "hot", tl)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := tio.ReadGeneric(ctx, "hot", 0)
			if assert.NoError(t, err) {
				assert.Equal(t, data, got.Buffer().Data())
				got.Release()
			}
		}()
	}
	wg.Wait()
}

func TestIO_CoordinateTile(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tio := New(store, filter.NewPipeline([]filter.Filter{filter.NewZSTD(1)}))

	// 50 cells of (row, col) int64 coordinates in cell-major order.
	var coords []byte
	for i := range 50 {
		coords = binary.LittleEndian.AppendUint64(coords, uint64(i/10))
		coords = binary.LittleEndian.AppendUint64(coords, uint64(i%10))
	}

	tl := tile.New()
	require.NoError(t, tl.InitUnfiltered(tile.CurrentFormatVersion, tile.Int64, uint64(len(coords)), 16, 2, false))
	defer tl.Release()
	require.NoError(t, tl.Write(coords))

	_, err := tio.PutGeneric(ctx, "coords", tl)
	require.NoError(t, err)

	got, err := tio.ReadGeneric(ctx, "coords", 0)
	require.NoError(t, err)
	defer got.Release()

	assert.True(t, got.StoresCoords())
	assert.Equal(t, uint32(2), got.DimNum())
	assert.Equal(t, coords, got.Buffer().Data())
}

type failingFilter struct{ filter.None }

var errForward = errors.New("forward failed")

func (failingFilter) Forward([]byte, int) ([]byte, []byte, error) {
	return nil, nil, errForward
}

func TestIO_FailedWriteKeepsCoordinateLayout(t *testing.T) {
	ctx := context.Background()
	tio := New(blobstore.NewMemoryStore(), filter.NewPipeline([]filter.Filter{failingFilter{}}))

	var coords []byte
	for i := range 4 {
		coords = binary.LittleEndian.AppendUint64(coords, uint64(100+i))
		coords = binary.LittleEndian.AppendUint64(coords, uint64(200+i))
	}

	tl := tile.New()
	require.NoError(t, tl.InitUnfiltered(tile.CurrentFormatVersion, tile.Int64, uint64(len(coords)), 16, 2, false))
	defer tl.Release()
	require.NoError(t, tl.Write(coords))

	_, err := tio.WriteGeneric(ctx, &bytes.Buffer{}, tl)
	require.ErrorIs(t, err, errForward)

	assert.False(t, tl.Filtered())
	assert.Equal(t, coords, tl.Buffer().Data())

	// A retry with a working pipeline round-trips the same cells.
	ok := New(blobstore.NewMemoryStore(), filter.NewPipeline(nil))
	_, err = ok.PutGeneric(ctx, "coords", tl)
	require.NoError(t, err)

	got, err := ok.ReadGeneric(ctx, "coords", 0)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, coords, got.Buffer().Data())
}
