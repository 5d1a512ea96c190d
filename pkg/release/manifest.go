// Package release implements the Release Builder/Verifier (spec §4.3): it
// walks a governance tree, hashes files, and produces/verifies a signed
// release manifest with a deterministic root_hash.
package release

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/aegisrail/govkernel/pkg/canonicalize"
	"github.com/aegisrail/govkernel/pkg/kernelerr"
)

const ManifestVersion = "0.5"

// FileEntry is one hashed governance file.
type FileEntry struct {
	Path   string `json:"path" yaml:"path"`
	SHA256 string `json:"sha256" yaml:"sha256"`
	Size   int64  `json:"size" yaml:"size"`
}

// ReleaseManifest is the hashed, versioned bundle of governance files.
//
// root_hash covers only {manifest_version, release_version, files} — build
// timestamps and tool versions live in BuilderMetadata and are explicitly
// excluded from the hash so rebuilds of identical content always match.
type ReleaseManifest struct {
	ManifestVersion string                 `json:"manifest_version" yaml:"manifest_version"`
	ReleaseVersion  string                 `json:"release_version" yaml:"release_version"`
	Files           []FileEntry            `json:"files" yaml:"files"`
	BuilderMetadata map[string]interface{} `json:"builder_metadata,omitempty" yaml:"builder_metadata,omitempty"`
	RootHash        string                 `json:"root_hash" yaml:"root_hash"`
}

// Signature is one signer's attestation over a manifest's root_hash.
type Signature struct {
	SignerAddress string `json:"signer_address" yaml:"signer_address"`
	Signature     string `json:"signature" yaml:"signature"` // hex-encoded
	KeyVersion    int    `json:"key_version" yaml:"key_version"`
}

// SignedRelease is a manifest plus one or more signer attestations.
type SignedRelease struct {
	Manifest   ReleaseManifest `json:"manifest" yaml:"manifest"`
	Signatures []Signature     `json:"signatures" yaml:"signatures"`
}

// computeRootHash hashes exactly {manifest_version, release_version, files}.
func computeRootHash(manifestVersion, releaseVersion string, files []FileEntry) (string, error) {
	obj := map[string]interface{}{
		"manifest_version": manifestVersion,
		"release_version":  releaseVersion,
		"files":            files,
	}
	return canonicalize.CanonicalHash(obj, nil)
}

// ValidateReleaseVersion checks that v is a valid semver string. This is a
// build-time gate only — the opaque string is still what enters the hash.
func ValidateReleaseVersion(v string) error {
	if _, err := semver.NewVersion(v); err != nil {
		return kernelerr.Wrap(kernelerr.KindSchema, "release_version is not valid semver", err)
	}
	return nil
}

// buildTimestamp is non-hashed provenance metadata recorded on build.
func buildTimestamp() time.Time { return time.Now() }
