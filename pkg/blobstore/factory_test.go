package blobstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aegisrail/govkernel/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LocalBackend(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Backend: "local",
		Path:    filepath.Join(t.TempDir(), "blobs"),
	})
	require.NoError(t, err)
	_, ok := store.(*FileStore)
	assert.True(t, ok)
}

func TestNew_LocalBackendMissingPath(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "local"})
	assert.Error(t, err)
}

func TestNew_S3BackendMissingBucket(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "storage.bucket")
}

func TestNew_UnsupportedBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "azure"})
	assert.ErrorContains(t, err, "unsupported backend")
}
