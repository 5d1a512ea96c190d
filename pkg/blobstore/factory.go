package blobstore

import (
	"context"
	"fmt"

	"github.com/aegisrail/govkernel/pkg/config"
)

// New builds the Store named by cfg.Backend ("local", "s3", or "gcs"),
// selecting storage.primary / storage.backup in the loaded Configuration
// (spec §6 expansion). "github" is accepted by config validation for
// forward compatibility with a release-bundle publishing flow but has no
// blobstore backend of its own; release bundles distributed through it go
// through pkg/release instead.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local":
		if cfg.Path == "" {
			return nil, fmt.Errorf("blobstore: local backend requires storage.path")
		}
		return NewFileStore(cfg.Path)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("blobstore: s3 backend requires storage.bucket")
		}
		return NewS3Store(ctx, S3Config{Bucket: cfg.Bucket, Region: cfg.Region})
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("blobstore: gcs backend requires storage.bucket")
		}
		return newGCSStoreFromConfig(ctx, cfg.Bucket, "")
	default:
		return nil, fmt.Errorf("blobstore: unsupported backend %q", cfg.Backend)
	}
}
