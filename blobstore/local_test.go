package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/internal/fs"
)

func TestLocalStore(t *testing.T) {
	testBlobStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_Layout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	require.NoError(t, store.Put(ctx, "frag-0001/tiles", []byte("abc")))

	data, err := os.ReadFile(filepath.Join(root, "frag-0001", "tiles"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	blob, err := store.Open(ctx, "frag-0001/tiles")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	mapped, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(mapped))
}

func TestLocalStore_InvalidNames(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	for _, name := range []string{"", "../escape", "a/../b", "/abs", "a//b"} {
		require.Error(t, store.Put(ctx, name, []byte("x")), name)
	}
}

func TestLocalStore_PendingWriteIsHidden(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	w, err := store.Create(ctx, "pending")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	_, err = store.Open(ctx, "pending")
	require.ErrorIs(t, err, ErrNotFound)
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pending"}, names)
}

func TestLocalStore_FailedPutLeavesOldBlob(t *testing.T) {
	ctx := context.Background()
	ffs := fs.NewFaultyFS(nil)
	store := NewLocalStore(t.TempDir(), WithFileSystem(ffs))

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("frag-0001")))

	ffs.AddRule("CURRENT", fs.Fault{FailAfterBytes: 4})
	err := store.Put(ctx, "CURRENT", []byte("frag-0002"))
	require.ErrorIs(t, err, fs.ErrInjected)

	got, err := ReadAll(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "frag-0001", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CURRENT"}, names)
}

func TestLocalStore_FailedRename(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("blob", fs.Fault{FailAfterBytes: -1, FailOnRename: true})
	store := NewLocalStore(root, WithFileSystem(ffs))

	require.ErrorIs(t, store.Put(ctx, "blob", []byte("x")), fs.ErrInjected)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_FailedDirSync(t *testing.T) {
	ctx := context.Background()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("frag-0001", fs.Fault{FailAfterBytes: -1, FailOnSyncDir: true})
	store := NewLocalStore(t.TempDir(), WithFileSystem(ffs))

	require.ErrorIs(t, store.Put(ctx, "frag-0001/meta", []byte("m")), fs.ErrInjected)

	// The rename happened; only its durability is unknown.
	got, err := ReadAll(ctx, store, "frag-0001/meta")
	require.NoError(t, err)
	assert.Equal(t, "m", string(got))
}
