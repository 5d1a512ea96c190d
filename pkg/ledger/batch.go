package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/aegisrail/govkernel/pkg/anchor"
	"github.com/aegisrail/govkernel/pkg/merkle"
	"github.com/google/uuid"
)

// BuildBatch Merkle-roots an ordered list of receipts (spec §4.7 "Merkle
// batch"). The anchor tx id and time are attached by Anchor once available;
// they do not enter any hash.
func BuildBatch(receipts []Receipt, now time.Time) *ReceiptBatch {
	hashes := make([]string, len(receipts))
	for i, r := range receipts {
		hashes[i] = r.ReceiptHash
	}
	tree := merkle.Build(hashes)

	return &ReceiptBatch{
		BatchID:    uuid.New().String(),
		Receipts:   receipts,
		MerkleRoot: tree.Root,
		CreatedAt:  now,
	}
}

// ProofFor returns the inclusion proof for receipt index i within batch.
func ProofFor(batch *ReceiptBatch, i int) merkle.Proof {
	hashes := make([]string, len(batch.Receipts))
	for j, r := range batch.Receipts {
		hashes[j] = r.ReceiptHash
	}
	tree := merkle.Build(hashes)
	return merkle.GenerateProof(tree, i)
}

// Anchor hands {merkle_root, release_root_hash, receipt_count} to the
// external anchor service and records the returned tx_id and the anchoring
// time on the batch for audit (spec §4.7 "Anchoring"); the returned
// block_number is not kept on the batch. Anchor-service failures
// are reported but do not invalidate the locally stored receipts — the
// chain remains verifiable offline (spec §7).
func Anchor(ctx context.Context, backend anchor.Backend, batch *ReceiptBatch, releaseRootHash string, now time.Time) error {
	if len(batch.Receipts) == 0 {
		return nil
	}
	result, err := backend.AnchorBatch(ctx, batch.MerkleRoot, releaseRootHash, len(batch.Receipts))
	if err != nil {
		return fmt.Errorf("ledger: anchor batch: %w", err)
	}
	batch.AnchorTxID = result.TxID
	t := now
	batch.AnchoredAt = &t
	return nil
}
