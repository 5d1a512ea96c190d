// Package anchor implements the abstract external anchor service client of
// spec §6: register_release, verify_release, anchor_batch. The core
// depends only on these three operations being idempotent and durable; it
// never depends on a specific chain, wire encoding, or contract.
package anchor

import (
	"context"
	"errors"
	"sync"
)

// ErrNotRegistered is returned by VerifyRelease for an unregistered root_hash.
var ErrNotRegistered = errors.New("anchor: root_hash not registered")

// AnchorResult is the {tx_id, block_number} pair returned by a successful
// anchoring operation.
type AnchorResult struct {
	TxID        string
	BlockNumber uint64
}

// VerifyResult reports a release's registration state.
type VerifyResult struct {
	Registered  bool
	Revoked     bool
	Version     string
	BlockNumber uint64
}

// Backend is the abstract anchor-service client.
type Backend interface {
	RegisterRelease(ctx context.Context, rootHash, version string) (AnchorResult, error)
	VerifyRelease(ctx context.Context, rootHash string) (VerifyResult, error)
	AnchorBatch(ctx context.Context, merkleRoot, releaseRootHash string, count int) (AnchorResult, error)
}

// InMemoryBackend is a deterministic, idempotent in-process stand-in for a
// real blockchain anchor service (the blockchain client itself is out of
// scope — see DESIGN.md).
type InMemoryBackend struct {
	mu        sync.Mutex
	releases  map[string]releaseRecord
	batches   map[string]AnchorResult
	nextBlock uint64
	newTxID   func() string
}

type releaseRecord struct {
	version string
	revoked bool
	result  AnchorResult
}

// NewInMemoryBackend constructs a fresh in-memory anchor backend. newTxID
// generates a transaction id per call; tests may supply a deterministic
// generator.
func NewInMemoryBackend(newTxID func() string) *InMemoryBackend {
	return &InMemoryBackend{
		releases: make(map[string]releaseRecord),
		batches:  make(map[string]AnchorResult),
		newTxID:  newTxID,
	}
}

func (b *InMemoryBackend) RegisterRelease(_ context.Context, rootHash, version string) (AnchorResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.releases[rootHash]; ok {
		return rec.result, nil // idempotent: already registered
	}

	b.nextBlock++
	result := AnchorResult{TxID: b.newTxID(), BlockNumber: b.nextBlock}
	b.releases[rootHash] = releaseRecord{version: version, result: result}
	return result, nil
}

func (b *InMemoryBackend) VerifyRelease(_ context.Context, rootHash string) (VerifyResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.releases[rootHash]
	if !ok {
		return VerifyResult{}, ErrNotRegistered
	}
	return VerifyResult{
		Registered:  true,
		Revoked:     rec.revoked,
		Version:     rec.version,
		BlockNumber: rec.result.BlockNumber,
	}, nil
}

func (b *InMemoryBackend) AnchorBatch(_ context.Context, merkleRoot, releaseRootHash string, count int) (AnchorResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if result, ok := b.batches[merkleRoot]; ok {
		return result, nil // idempotent: already anchored
	}

	b.nextBlock++
	result := AnchorResult{TxID: b.newTxID(), BlockNumber: b.nextBlock}
	b.batches[merkleRoot] = result
	return result, nil
}

// Revoke marks a registered release as revoked, for tests exercising
// verify_release's revocation path.
func (b *InMemoryBackend) Revoke(rootHash string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.releases[rootHash]; ok {
		rec.revoked = true
		b.releases[rootHash] = rec
	}
}
