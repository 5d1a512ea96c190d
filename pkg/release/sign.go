package release

import (
	"encoding/hex"

	"github.com/aegisrail/govkernel/pkg/kernelerr"
	"github.com/aegisrail/govkernel/pkg/vault"
)

// Sign signs manifest.RootHash (as its string representation) with the
// release role key and returns a SignedRelease carrying the attestation.
func Sign(manifest ReleaseManifest, v *vault.Vault, passphrase string) (*SignedRelease, error) {
	sig, err := signRootHash(manifest.RootHash, v, passphrase)
	if err != nil {
		return nil, err
	}
	return &SignedRelease{Manifest: manifest, Signatures: []Signature{sig}}, nil
}

// AddSignature appends an additional co-signer's attestation to an already
// built SignedRelease (multi-signer release policies).
func AddSignature(sr *SignedRelease, v *vault.Vault, passphrase string) error {
	sig, err := signRootHash(sr.Manifest.RootHash, v, passphrase)
	if err != nil {
		return err
	}
	sr.Signatures = append(sr.Signatures, sig)
	return nil
}

func signRootHash(rootHash string, v *vault.Vault, passphrase string) (Signature, error) {
	res, err := v.SignHash(vault.RoleRelease, rootHash, passphrase)
	if err != nil {
		return Signature{}, kernelerr.Wrap(kernelerr.KindSignatureInvalid, "sign release root_hash", err)
	}
	return Signature{
		SignerAddress: res.SignerAddress,
		Signature:     hex.EncodeToString(res.Signature),
		KeyVersion:    res.KeyVersion,
	}, nil
}
