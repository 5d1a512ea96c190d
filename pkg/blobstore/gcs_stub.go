//go:build !gcp

package blobstore

import (
	"context"
	"fmt"
)

func newGCSStoreFromConfig(ctx context.Context, bucket, prefix string) (Store, error) {
	return nil, fmt.Errorf("blobstore: GCS backend requires building with -tags gcp")
}
