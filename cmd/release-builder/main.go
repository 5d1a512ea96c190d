// Command release-builder walks a governance directory, hashes its
// contents into a ReleaseManifest, and signs the result with the release
// role key held in a vault backend (spec §4.3).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aegisrail/govkernel/pkg/release"
	"github.com/aegisrail/govkernel/pkg/vault"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("release-builder", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		governanceDir string
		releaseVer    string
		vaultDir      string
		passphrase    string
		outPath       string
	)
	fs.StringVar(&governanceDir, "governance-dir", "", "governance tree to hash (REQUIRED)")
	fs.StringVar(&releaseVer, "release-version", "", "semver release version (REQUIRED)")
	fs.StringVar(&vaultDir, "vault-dir", "", "directory holding the sealed release key (REQUIRED)")
	fs.StringVar(&passphrase, "passphrase", "", "passphrase unlocking the release key (REQUIRED)")
	fs.StringVar(&outPath, "out", "", "output path for the signed release JSON (REQUIRED)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if governanceDir == "" || releaseVer == "" || vaultDir == "" || passphrase == "" || outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: release-builder -governance-dir DIR -release-version X.Y.Z -vault-dir DIR -passphrase PASS -out FILE")
		return 2
	}

	manifest, err := release.Build(release.BuildOptions{
		GovernanceDir:  governanceDir,
		ReleaseVersion: releaseVer,
	})
	if err != nil {
		log.Printf("build manifest: %v", err)
		return 1
	}

	backend, err := vault.NewFileBackend(vaultDir)
	if err != nil {
		log.Printf("open vault: %v", err)
		return 1
	}
	v := vault.New(backend)

	signed, err := release.Sign(*manifest, v, passphrase)
	if err != nil {
		log.Printf("sign release: %v", err)
		return 1
	}

	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		log.Printf("encode signed release: %v", err)
		return 1
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		log.Printf("write %s: %v", outPath, err)
		return 1
	}

	fmt.Printf("release %s built: %d files, root_hash=%s\n", manifest.ReleaseVersion, len(manifest.Files), manifest.RootHash)
	fmt.Printf("signed release written to %s\n", outPath)
	return 0
}
