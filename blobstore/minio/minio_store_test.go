package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/blobstore"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// TestMinioStore_Integration requires a running MinIO instance.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}
	bucket := getenv("MINIO_BUCKET", "test-tilestore")
	prefix := fmt.Sprintf("run-%d/", time.Now().UnixNano())

	store, err := New(endpoint, bucket,
		WithStaticCredentials(getenv("MINIO_ACCESS_KEY", "minioadmin"), getenv("MINIO_SECRET_KEY", "minioadmin")),
		WithRootPrefix(prefix),
		WithSecure(false))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := store.client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	t.Run("PutAndOpen", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "CURRENT", []byte("frag-0001")))

		got, err := blobstore.ReadAll(ctx, store, "CURRENT")
		require.NoError(t, err)
		assert.Equal(t, "frag-0001", string(got))
	})

	t.Run("CreateAndReadRange", func(t *testing.T) {
		w, err := store.Create(ctx, "frag-0001/tiles")
		require.NoError(t, err)
		_, err = w.Write([]byte("0123456789"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		b, err := store.Open(ctx, "frag-0001/tiles")
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, int64(10), b.Size())

		r, err := b.ReadRange(ctx, 3, 4)
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "3456", string(data))

		buf := make([]byte, 4)
		n, err := b.ReadAt(ctx, buf, 8)
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("AbortLeavesNoObject", func(t *testing.T) {
		w, err := store.Create(ctx, "frag-0002/tiles")
		require.NoError(t, err)
		_, err = w.Write([]byte("partial"))
		require.NoError(t, err)
		require.NoError(t, w.(interface{ Abort() error }).Abort())

		_, err = store.Open(ctx, "frag-0002/tiles")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("OverwriteInvalidatesHandle", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "schema", []byte("v1")))
		b, err := store.Open(ctx, "schema")
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, store.Put(ctx, "schema", []byte("v2")))
		_, err = b.ReadAt(ctx, make([]byte, 2), 0)
		assert.ErrorIs(t, err, ErrModified)
		require.NoError(t, store.Delete(ctx, "schema"))
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"CURRENT", "frag-0001/tiles"}, names)
	})

	t.Run("DeleteAndNotFound", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "CURRENT"))
		require.NoError(t, store.Delete(ctx, "frag-0001/tiles"))
		require.NoError(t, store.Delete(ctx, "CURRENT"))

		_, err := store.Open(ctx, "CURRENT")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError("open", "x", nil))

	for _, resp := range []minio.ErrorResponse{
		{Code: "NoSuchKey"},
		{Code: "NoSuchBucket"},
		{StatusCode: http.StatusNotFound},
	} {
		err := translateError("open", "frag-1/meta", resp)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
		assert.ErrorContains(t, err, "frag-1/meta")
	}

	assert.ErrorIs(t, translateError("read", "x", minio.ErrorResponse{Code: "PreconditionFailed"}), ErrModified)

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	err := translateError("put", "x", denied)
	assert.NotErrorIs(t, err, blobstore.ErrNotFound)
	assert.ErrorAs(t, err, new(minio.ErrorResponse))
}

func TestStore_ObjectNames(t *testing.T) {
	s := NewStore(nil, "tiles", "/arrays/dense/")
	assert.Equal(t, "arrays/dense/frag-1/meta", s.object("frag-1/meta"))
	assert.Equal(t, "frag-1/meta", s.blobName("arrays/dense/frag-1/meta"))

	bare := NewStore(nil, "tiles", "")
	assert.Equal(t, "CURRENT", bare.object("CURRENT"))
	assert.Equal(t, "CURRENT", bare.blobName("CURRENT"))
}
