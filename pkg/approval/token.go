// Package approval implements the Approval Token Service (spec §4.6): a
// signed, single-use, session-bound capability granting one specific tool
// action, with nonce-based replay prevention backed by a pluggable nonce
// database.
package approval

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aegisrail/govkernel/pkg/canonicalize"
	"github.com/aegisrail/govkernel/pkg/vault"
)

const tokenVersion = "1"

// ApprovalRequest is the challenge the executor returns when a tool call
// needs approval (spec §4.5 step 3).
type ApprovalRequest struct {
	ActionHash string            `json:"action_hash"`
	Summary    string            `json:"summary"`
	ExpiresAt  int64             `json:"expires_at"` // wall-clock ms
	ToolName   string            `json:"tool_name"`
	SessionID  string            `json:"session_id"`
	Sequence   int64             `json:"sequence_number"`
	Params     map[string]interface{} `json:"-"`
}

// ApprovalToken is the signed, single-use capability of spec §3.
type ApprovalToken struct {
	TokenVersion     string `json:"token_version"`
	ReleaseRootHash  string `json:"release_root_hash"`
	KeyVersion       int    `json:"key_version"`
	ToolName         string `json:"tool_name"`
	ActionHash       string `json:"action_hash"`
	Nonce            string `json:"nonce"`
	SessionID        string `json:"session_id"`
	SequenceNumber   int64  `json:"sequence_number"`
	ExpiresAt        int64  `json:"expires_at"`
	SummaryHash      string `json:"summary_hash"`
	RequestedAt      int64  `json:"requested_at"`
	ApprovedAt       int64  `json:"approved_at"`
	ApproverPubkey   string `json:"approver_pubkey"`
	Signature        string `json:"signature"`
}

// signablePayload returns the token's fields subject to signing: every
// field except approver_pubkey and signature (spec §4.6).
func (t ApprovalToken) signablePayload() map[string]interface{} {
	return map[string]interface{}{
		"token_version":     t.TokenVersion,
		"release_root_hash": t.ReleaseRootHash,
		"key_version":       t.KeyVersion,
		"tool_name":         t.ToolName,
		"action_hash":      t.ActionHash,
		"nonce":            t.Nonce,
		"session_id":       t.SessionID,
		"sequence_number":  t.SequenceNumber,
		"expires_at":       t.ExpiresAt,
		"summary_hash":     t.SummaryHash,
		"requested_at":     t.RequestedAt,
		"approved_at":      t.ApprovedAt,
	}
}

// CreateOptions carries the inputs needed to mint a token that aren't
// already present on the ApprovalRequest.
type CreateOptions struct {
	ReleaseRootHash string
	ActionHash      string
	ToolName        string
	SessionID       string
	SequenceNumber  int64
	Summary         string
	RequestedAt     time.Time
	Now             time.Time
	TTL             time.Duration
	Vault           *vault.Vault
	Passphrase      string
}

// Create mints and signs a fresh ApprovalToken under the approver role.
func Create(opts CreateOptions) (*ApprovalToken, error) {
	nonce, err := randomNonceHex()
	if err != nil {
		return nil, fmt.Errorf("approval: generate nonce: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	requestedAt := opts.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = now
	}

	approverAddress, keyVersion, err := opts.Vault.Peek(vault.RoleApprover, opts.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("approval: resolve approver key: %w", err)
	}

	token := ApprovalToken{
		TokenVersion:    tokenVersion,
		ReleaseRootHash: opts.ReleaseRootHash,
		KeyVersion:      keyVersion,
		ToolName:        opts.ToolName,
		ActionHash:      opts.ActionHash,
		Nonce:           nonce,
		SessionID:       opts.SessionID,
		SequenceNumber:  opts.SequenceNumber,
		ExpiresAt:       now.Add(ttl).UnixMilli(),
		SummaryHash:     canonicalize.SHA256([]byte(opts.Summary)),
		RequestedAt:     requestedAt.UnixMilli(),
		ApprovedAt:      now.UnixMilli(),
		ApproverPubkey:  approverAddress,
	}

	payload, err := canonicalize.Canonicalize(token.signablePayload())
	if err != nil {
		return nil, fmt.Errorf("approval: canonicalize payload: %w", err)
	}

	sig, err := opts.Vault.Sign(vault.RoleApprover, payload, opts.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("approval: sign token: %w", err)
	}

	token.Signature = hex.EncodeToString(sig.Signature)
	return &token, nil
}

func randomNonceHex() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
