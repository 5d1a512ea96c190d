package release

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aegisrail/govkernel/pkg/canonicalize"
	"github.com/aegisrail/govkernel/pkg/kernelerr"
)

// governanceSubdirs is the fixed allowlist of top-level subdirectories a
// release traversal descends into. Anything else under governanceDir is
// ignored, not an error.
var governanceSubdirs = []string{
	"constitution", "agents", "tools", "schemas", "policy", "contracts",
}

// allowedExtensions is the allowlisted file extension set for governance
// documents. Anything else is skipped silently during traversal.
var allowedExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".md":   true,
	".cel":  true,
}

// BuildOptions configures Build.
type BuildOptions struct {
	GovernanceDir   string
	ReleaseVersion  string
	BuilderMetadata map[string]interface{}
}

// Build walks dir under the fixed governance subdirectory allowlist and
// produces an unsigned ReleaseManifest with a deterministic root_hash.
func Build(opts BuildOptions) (*ReleaseManifest, error) {
	if err := ValidateReleaseVersion(opts.ReleaseVersion); err != nil {
		return nil, err
	}

	var files []FileEntry
	for _, sub := range governanceSubdirs {
		subDir := filepath.Join(opts.GovernanceDir, sub)
		entries, err := walkSubdir(opts.GovernanceDir, subDir)
		if err != nil {
			return nil, err
		}
		files = append(files, entries...)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	rootHash, err := computeRootHash(ManifestVersion, opts.ReleaseVersion, files)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindEncodingError, "compute root_hash", err)
	}

	meta := opts.BuilderMetadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["built_at"] = buildTimestamp().UTC().Format("2006-01-02T15:04:05.000Z")

	return &ReleaseManifest{
		ManifestVersion: ManifestVersion,
		ReleaseVersion:  opts.ReleaseVersion,
		Files:           files,
		BuilderMetadata: meta,
		RootHash:        rootHash,
	}, nil
}

func walkSubdir(root, subDir string) ([]FileEntry, error) {
	var out []FileEntry
	err := filepath.WalkDir(subDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if isNotExist(err) {
				return nil
			}
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != subDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isSkippable(name) {
			return nil
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		data, err := readFile(path)
		if err != nil {
			return err
		}

		out = append(out, FileEntry{
			Path:   rel,
			SHA256: canonicalize.SHA256(data),
			Size:   int64(len(data)),
		})
		return nil
	})
	return out, err
}

// isSkippable reports dot-prefixed and ephemeral (swap/backup/lock) names.
func isSkippable(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch {
	case strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".lock"):
		return true
	}
	return false
}
