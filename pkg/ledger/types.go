// Package ledger implements the Receipt Ledger (spec §4.7): a write-ahead
// log, a hash-chained receipt sequence per session, and Bitcoin-style
// Merkle batching for anchoring.
package ledger

import (
	"time"
)

// WALStatus is the lifecycle state of one write-ahead log entry.
type WALStatus string

const (
	WALPending    WALStatus = "pending"
	WALCommitted  WALStatus = "committed"
	WALRolledBack WALStatus = "rolled_back"
)

// WALEntry is the durable pre-image of a receipt before it is signed and
// chained (spec §4.7 "Write-ahead log").
type WALEntry struct {
	WALID     string      `json:"wal_id"`
	ReceiptID string      `json:"receipt_id"`
	Status    WALStatus   `json:"status"`
	Receipt   interface{} `json:"receipt"` // partial receipt data
	Timestamp time.Time   `json:"timestamp"`
}

// ToolCallRecord is one executed tool call folded into a receipt.
type ToolCallRecord struct {
	ToolName          string            `json:"tool_name"`
	InputHash         string            `json:"input_hash"`
	OutputHash        string            `json:"output_hash"`
	OutputSensitivity string            `json:"output_sensitivity"`
	OutputSize        int               `json:"output_size"`
	Timestamp         time.Time         `json:"timestamp"`
	DurationMillis    int64             `json:"duration_ms"`
	Status            string            `json:"status"` // success | blocked | error | awaiting_approval
	BlockReason       string            `json:"block_reason,omitempty"`
	SmugglingFlags    map[string]bool   `json:"smuggling_flags,omitempty"`
}

// Receipt is a signed, hash-chained record of one session's execution
// steps (spec §3).
type Receipt struct {
	ReceiptVersion     string           `json:"receipt_version"`
	ReceiptID          string           `json:"receipt_id"`
	ReleaseRootHash    string           `json:"release_root_hash"`
	SessionID          string           `json:"session_id"`
	PrevReceiptHash    *string          `json:"prev_receipt_hash"`
	SequenceNumber     int64            `json:"sequence_number"`
	ToolCalls          []ToolCallRecord `json:"tool_calls"`
	ApprovalsUsed      []string         `json:"approvals_used"` // token hashes
	SessionSensitivity string           `json:"session_sensitivity"`
	TaintSource        string           `json:"taint_source,omitempty"`
	StartedAt          time.Time        `json:"started_at"`
	CompletedAt        time.Time        `json:"completed_at"`
	ReceiptHash        string           `json:"receipt_hash"`
	Signature          string           `json:"signature"`
}

// hashedFields returns the receipt's content with receipt_hash and
// signature excluded, per spec §4.7 ("canonicalizing the receipt with
// receipt_hash and signature absent").
func (r Receipt) hashedFields() map[string]interface{} {
	return map[string]interface{}{
		"receipt_version":     r.ReceiptVersion,
		"receipt_id":          r.ReceiptID,
		"release_root_hash":   r.ReleaseRootHash,
		"session_id":          r.SessionID,
		"prev_receipt_hash":   prevHashValue(r.PrevReceiptHash),
		"sequence_number":     r.SequenceNumber,
		"tool_calls":          r.ToolCalls,
		"approvals_used":      r.ApprovalsUsed,
		"session_sensitivity": r.SessionSensitivity,
		"taint_source":        r.TaintSource,
		"started_at":          r.StartedAt.UnixMilli(),
		"completed_at":        r.CompletedAt.UnixMilli(),
	}
}

func prevHashValue(h *string) interface{} {
	if h == nil {
		return nil
	}
	return *h
}

// ReceiptBatch groups receipts for Merkle anchoring (spec §3).
type ReceiptBatch struct {
	BatchID     string    `json:"batch_id"`
	Receipts    []Receipt `json:"receipts"`
	MerkleRoot  string    `json:"merkle_root"`
	CreatedAt   time.Time `json:"created_at"`
	AnchoredAt  *time.Time `json:"anchored_at,omitempty"`
	AnchorTxID  string    `json:"anchor_tx,omitempty"`
}
