package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aegisrail/govkernel/pkg/blobstore"
)

// Archive persists a sealed batch's full receipt set to blob storage,
// content-addressed by its own bytes, and returns the resulting hash. The
// primary ledger store keeps the batch's Merkle root and anchor metadata;
// the bulky receipt bodies live in blobstore so the ledger's own tables
// stay small (SPEC_FULL §2 expansion).
func Archive(ctx context.Context, store blobstore.Store, batch *ReceiptBatch) (string, error) {
	raw, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("ledger: marshal batch for archive: %w", err)
	}
	hash, err := store.Put(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("ledger: archive batch %s: %w", batch.BatchID, err)
	}
	return hash, nil
}

// LoadArchivedBatch retrieves and decodes a batch previously persisted by
// Archive.
func LoadArchivedBatch(ctx context.Context, store blobstore.Store, hash string) (*ReceiptBatch, error) {
	raw, err := store.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("ledger: load archived batch %s: %w", hash, err)
	}
	var batch ReceiptBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("ledger: decode archived batch %s: %w", hash, err)
	}
	return &batch, nil
}
