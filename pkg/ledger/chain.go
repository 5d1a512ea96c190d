package ledger

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aegisrail/govkernel/pkg/canonicalize"
	"github.com/aegisrail/govkernel/pkg/vault"
	"github.com/google/uuid"
)

const receiptVersion = "1"

// AppendOptions carries the inputs needed to seal the next receipt in a
// session's chain.
type AppendOptions struct {
	ReleaseRootHash    string
	SessionID          string
	SequenceNumber     int64
	PrevReceiptHash    *string // nil for sequence_number == 0
	ToolCalls          []ToolCallRecord
	ApprovalsUsed      []string
	SessionSensitivity string
	TaintSource        string
	StartedAt          time.Time
	CompletedAt        time.Time
	Vault              *vault.Vault
	Passphrase         string
}

// Append computes receipt_hash over every field but itself and signature,
// signs it under the receipt role key, and returns the sealed Receipt
// (spec §4.7 "Hash chain").
func Append(opts AppendOptions) (*Receipt, error) {
	if opts.SequenceNumber == 0 && opts.PrevReceiptHash != nil {
		return nil, fmt.Errorf("ledger: sequence 0 must have nil prev_receipt_hash")
	}
	if opts.SequenceNumber > 0 && opts.PrevReceiptHash == nil {
		return nil, fmt.Errorf("ledger: sequence %d requires a prev_receipt_hash", opts.SequenceNumber)
	}

	r := Receipt{
		ReceiptVersion:     receiptVersion,
		ReceiptID:          uuid.New().String(),
		ReleaseRootHash:    opts.ReleaseRootHash,
		SessionID:          opts.SessionID,
		PrevReceiptHash:    opts.PrevReceiptHash,
		SequenceNumber:     opts.SequenceNumber,
		ToolCalls:          opts.ToolCalls,
		ApprovalsUsed:      opts.ApprovalsUsed,
		SessionSensitivity: opts.SessionSensitivity,
		TaintSource:        opts.TaintSource,
		StartedAt:          opts.StartedAt,
		CompletedAt:        opts.CompletedAt,
	}

	hash, err := canonicalize.CanonicalHash(r.hashedFields(), nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: compute receipt_hash: %w", err)
	}
	r.ReceiptHash = hash

	sig, err := opts.Vault.Sign(vault.RoleReceipt, []byte(hash), opts.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("ledger: sign receipt: %w", err)
	}
	r.Signature = hex.EncodeToString(sig.Signature)

	return &r, nil
}

// ChainError names one receipt's verification failure (spec §4.7
// "Verification ... failure enumerates every offending receipt; no
// failure is silent").
type ChainError struct {
	Index  int
	Reason string
}

// VerifyChain checks hash integrity, sequence_number == index, and
// prev_receipt_hash linkage for every receipt, reporting every offense.
func VerifyChain(receipts []Receipt) []ChainError {
	var errs []ChainError
	var prevHash *string

	for i, r := range receipts {
		if r.SequenceNumber != int64(i) {
			errs = append(errs, ChainError{Index: i, Reason: fmt.Sprintf("sequence_number %d != index %d", r.SequenceNumber, i)})
		}

		if i == 0 {
			if r.PrevReceiptHash != nil {
				errs = append(errs, ChainError{Index: i, Reason: "first receipt must have nil prev_receipt_hash"})
			}
		} else {
			if r.PrevReceiptHash == nil || prevHash == nil || *r.PrevReceiptHash != *prevHash {
				errs = append(errs, ChainError{Index: i, Reason: "prev_receipt_hash does not match previous receipt's receipt_hash"})
			}
		}

		recomputed, err := canonicalize.CanonicalHash(r.hashedFields(), nil)
		if err != nil || recomputed != r.ReceiptHash {
			errs = append(errs, ChainError{Index: i, Reason: "receipt_hash does not match recomputed content"})
		}

		h := r.ReceiptHash
		prevHash = &h
	}
	return errs
}
