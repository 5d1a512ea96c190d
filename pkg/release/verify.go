package release

import (
	"encoding/hex"
	"fmt"

	"github.com/aegisrail/govkernel/pkg/kernelerr"
	"github.com/aegisrail/govkernel/pkg/vault"
)

// VerifyResult reports the outcome of VerifyRelease.
type VerifyResult struct {
	OK            bool
	FilesChecked  int
	RootHashError error
	FileErrors    []error
	SignatureErrs []error
}

// VerifyRelease recomputes root_hash from sr's declared file list
// (ROOT_HASH_MISMATCH on mismatch, which ends verification before the file
// and signature checks), re-hashes every referenced file on disk under
// governanceDir (FILE_HASH_MISMATCH per file), and verifies each ed25519
// signature over the stored root_hash against its declared signer address
// (SIGNATURE_INVALID on failure).
func VerifyRelease(sr SignedRelease, governanceDir string) VerifyResult {
	var result VerifyResult

	recomputed, err := computeRootHash(sr.Manifest.ManifestVersion, sr.Manifest.ReleaseVersion, sr.Manifest.Files)
	if err != nil {
		result.RootHashError = kernelerr.Wrap(kernelerr.KindHashMismatch, "ROOT_HASH_MISMATCH: recompute failed", err)
		return result
	}
	if recomputed != sr.Manifest.RootHash {
		result.RootHashError = kernelerr.New(kernelerr.KindHashMismatch,
			fmt.Sprintf("ROOT_HASH_MISMATCH: declared %s recomputed %s", sr.Manifest.RootHash, recomputed))
		return result
	}

	for _, f := range sr.Manifest.Files {
		result.FilesChecked++
		if err := verifyFileHash(governanceDir, f); err != nil {
			result.FileErrors = append(result.FileErrors, err)
		}
	}

	if len(sr.Signatures) == 0 {
		result.SignatureErrs = append(result.SignatureErrs,
			kernelerr.New(kernelerr.KindSignatureInvalid, "SIGNATURE_INVALID: no signatures present"))
	}
	for _, sig := range sr.Signatures {
		if err := verifySignature(sr.Manifest.RootHash, sig); err != nil {
			result.SignatureErrs = append(result.SignatureErrs, err)
		}
	}

	result.OK = result.RootHashError == nil && len(result.FileErrors) == 0 && len(result.SignatureErrs) == 0
	return result
}

func verifyFileHash(governanceDir string, f FileEntry) error {
	data, err := readFile(joinGovernance(governanceDir, f.Path))
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindHashMismatch,
			fmt.Sprintf("FILE_HASH_MISMATCH: %s: cannot read", f.Path), err)
	}
	got := sha256Hex(data)
	if got != f.SHA256 {
		return kernelerr.New(kernelerr.KindHashMismatch,
			fmt.Sprintf("FILE_HASH_MISMATCH: %s: declared %s actual %s", f.Path, f.SHA256, got))
	}
	if int64(len(data)) != f.Size {
		return kernelerr.New(kernelerr.KindHashMismatch,
			fmt.Sprintf("FILE_HASH_MISMATCH: %s: declared size %d actual %d", f.Path, f.Size, len(data)))
	}
	return nil
}

func verifySignature(rootHash string, sig Signature) error {
	raw, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindSignatureInvalid, "SIGNATURE_INVALID: malformed signature encoding", err)
	}
	ok, err := vault.VerifySignature(sig.SignerAddress, []byte(rootHash), raw)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindSignatureInvalid, "SIGNATURE_INVALID: cannot recover signer", err)
	}
	if !ok {
		return kernelerr.New(kernelerr.KindSignatureInvalid,
			fmt.Sprintf("SIGNATURE_INVALID: signature does not verify for %s", sig.SignerAddress))
	}
	return nil
}
