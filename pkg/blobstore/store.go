// Package blobstore implements the content-addressed storage interface
// named in spec §6: release bundles and large receipt batches are kept
// outside the primary ledger store, addressed by the SHA-256 of their
// bytes so a duplicate upload is always a no-op.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Store is the contract every backend implements. Put is idempotent:
// uploading the same bytes twice returns the same hash without a second
// write. Keys returned by Put are always of the form "sha256:<hex>".
type Store interface {
	Put(ctx context.Context, data []byte) (hash string, err error)
	Get(ctx context.Context, hash string) ([]byte, error)
	Has(ctx context.Context, hash string) (bool, error)
	Delete(ctx context.Context, hash string) error
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func rawHash(hash string) (string, error) {
	const prefix = "sha256:"
	if len(hash) <= len(prefix) || hash[:len(prefix)] != prefix {
		return "", fmt.Errorf("blobstore: malformed hash %q", hash)
	}
	raw := hash[len(prefix):]
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("blobstore: hash %q is not valid hex: %w", hash, err)
	}
	return raw, nil
}
