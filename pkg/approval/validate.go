package approval

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aegisrail/govkernel/pkg/canonicalize"
	"github.com/aegisrail/govkernel/pkg/kernelerr"
	"github.com/aegisrail/govkernel/pkg/vault"
)

// ValidationResult is the accumulated outcome of validate() (spec §4.6):
// every distinct reason a token is invalid is reported, not just the
// first.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateParams names the expected binding of a token to the action about
// to execute.
type ValidateParams struct {
	ExpectedReleaseRootHash string
	ExpectedSessionID       string
	ExpectedSequence        int64
	ExpectedTool            string
	Params                  map[string]interface{}
	NonceDB                 NonceDB
	NowUnixMilli            int64
}

// VerifySignature reconstructs the exact canonical payload used at
// creation, recovers the signer, and compares it to the token's declared
// approver_pubkey (spec §4.6).
func VerifySignature(token ApprovalToken) (bool, string, error) {
	payload, err := canonicalize.Canonicalize(token.signablePayload())
	if err != nil {
		return false, "", fmt.Errorf("approval: canonicalize payload: %w", err)
	}
	sigBytes, err := hex.DecodeString(token.Signature)
	if err != nil {
		return false, token.ApproverPubkey, nil
	}
	ok, err := vault.VerifySignature(token.ApproverPubkey, payload, sigBytes)
	if err != nil {
		return false, token.ApproverPubkey, nil
	}
	return ok, token.ApproverPubkey, nil
}

// Validate runs every check of spec §4.5 step 2 / §4.6 and returns the
// full accumulated list of distinct-named errors; it never short-circuits,
// so a client sees every reason a token is invalid.
func Validate(token ApprovalToken, p ValidateParams) ValidationResult {
	var errs []string

	if token.TokenVersion != tokenVersion {
		errs = append(errs, kernelerr.TokenReasonVersion)
	}
	if token.ReleaseRootHash != p.ExpectedReleaseRootHash {
		errs = append(errs, kernelerr.TokenReasonRootHash)
	}
	if token.SessionID != p.ExpectedSessionID {
		errs = append(errs, kernelerr.TokenReasonSession)
	}
	if token.SequenceNumber != p.ExpectedSequence {
		errs = append(errs, kernelerr.TokenReasonSequence)
	}
	if token.ToolName != p.ExpectedTool {
		errs = append(errs, kernelerr.TokenReasonToolName)
	}

	expectedActionHash, err := canonicalize.ActionHash(p.ExpectedReleaseRootHash, p.ExpectedTool, p.Params)
	if err != nil || token.ActionHash != expectedActionHash {
		errs = append(errs, kernelerr.TokenReasonActionHash)
	}

	if p.NowUnixMilli >= token.ExpiresAt {
		errs = append(errs, kernelerr.TokenReasonExpired)
	}

	if p.NonceDB != nil {
		spent, err := p.NonceDB.IsSpent(token.Nonce)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: nonce lookup failed: %v", kernelerr.TokenReasonReplay, err))
		} else if spent {
			errs = append(errs, kernelerr.TokenReasonReplay)
		}
	}

	sigOK, _, sigErr := VerifySignature(token)
	if sigErr != nil || !sigOK {
		errs = append(errs, kernelerr.TokenReasonSignature)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Consume atomically marks token's nonce spent. Any second call with the
// same nonce from anywhere fails with ErrReplay.
func Consume(token ApprovalToken, db NonceDB, now int64) error {
	return db.Spend(token.Nonce, token.SessionID, time.UnixMilli(now))
}
