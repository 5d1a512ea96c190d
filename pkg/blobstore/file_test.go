package blobstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("release bundle bytes")

	hash, err := store.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, "sha256:", hash[:7])

	got, err := store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	has, err := store.Has(ctx, hash)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestFileStore_PutIsIdempotent(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("same bytes twice")

	h1, err := store.Put(ctx, data)
	require.NoError(t, err)
	h2, err := store.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestFileStore_GetMissingReturnsError(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "sha256:"+hash64Zeros)
	assert.Error(t, err)
}

func TestFileStore_HasMissingIsFalse(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	has, err := store.Has(context.Background(), "sha256:"+hash64Zeros)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFileStore_DeleteThenMissing(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	ctx := context.Background()
	hash, err := store.Put(ctx, []byte("to delete"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, hash))

	has, err := store.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, has)

	// Deleting an already-absent blob is not an error.
	assert.NoError(t, store.Delete(ctx, hash))
}

func TestFileStore_MalformedHashRejected(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "not-a-hash")
	assert.Error(t, err)
}

const hash64Zeros = "0000000000000000000000000000000000000000000000000000000000000000"
