package release

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aegisrail/govkernel/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGovernanceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"constitution/core.md":     "# core principles\n",
		"agents/reviewer.yaml":     "name: reviewer\n",
		"tools/shell.json":         `{"name":"shell"}`,
		"schemas/tool.json":        `{"type":"object"}`,
		"policy/default.yaml":      "risk_level: HIGH\n",
		"contracts/approval.yaml":  "token_version: 1\n",
		"unrelated/ignored.txt":    "should not be included",
		"constitution/.hidden.md":  "skip me",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0700))
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	}
	return root
}

func TestBuildAndVerify_HappyPath(t *testing.T) {
	root := writeGovernanceTree(t)

	manifest, err := Build(BuildOptions{GovernanceDir: root, ReleaseVersion: "1.0.0"})
	require.NoError(t, err)
	assert.Len(t, manifest.Files, 6)
	assert.NotEmpty(t, manifest.RootHash)

	v := vault.New(vault.NewInMemoryBackend())
	_, err = v.Generate(vault.RoleRelease, "release-pass")
	require.NoError(t, err)

	signed, err := Sign(*manifest, v, "release-pass")
	require.NoError(t, err)

	result := VerifyRelease(*signed, root)
	assert.True(t, result.OK)
	assert.Empty(t, result.FileErrors)
	assert.Empty(t, result.SignatureErrs)
	assert.Nil(t, result.RootHashError)
}

func TestBuild_IsDeterministic(t *testing.T) {
	root := writeGovernanceTree(t)

	m1, err := Build(BuildOptions{GovernanceDir: root, ReleaseVersion: "2.1.0"})
	require.NoError(t, err)
	m2, err := Build(BuildOptions{GovernanceDir: root, ReleaseVersion: "2.1.0"})
	require.NoError(t, err)

	assert.Equal(t, m1.RootHash, m2.RootHash)
}

func TestVerify_TamperedFileDetected(t *testing.T) {
	root := writeGovernanceTree(t)

	manifest, err := Build(BuildOptions{GovernanceDir: root, ReleaseVersion: "1.0.0"})
	require.NoError(t, err)

	v := vault.New(vault.NewInMemoryBackend())
	_, err = v.Generate(vault.RoleRelease, "pw")
	require.NoError(t, err)
	signed, err := Sign(*manifest, v, "pw")
	require.NoError(t, err)

	tampered := filepath.Join(root, "policy", "default.yaml")
	require.NoError(t, os.WriteFile(tampered, []byte("risk_level: LOW\n"), 0600))

	result := VerifyRelease(*signed, root)
	assert.False(t, result.OK)
	require.Len(t, result.FileErrors, 1)
	assert.Contains(t, result.FileErrors[0].Error(), "FILE_HASH_MISMATCH")
}

func TestVerify_RootHashMismatchWhenFilesListEdited(t *testing.T) {
	root := writeGovernanceTree(t)

	manifest, err := Build(BuildOptions{GovernanceDir: root, ReleaseVersion: "1.0.0"})
	require.NoError(t, err)

	v := vault.New(vault.NewInMemoryBackend())
	_, err = v.Generate(vault.RoleRelease, "pw")
	require.NoError(t, err)
	signed, err := Sign(*manifest, v, "pw")
	require.NoError(t, err)

	signed.Manifest.Files[0].SHA256 = "0xdeadbeef"

	result := VerifyRelease(*signed, root)
	assert.False(t, result.OK)
	require.Error(t, result.RootHashError)
	assert.Contains(t, result.RootHashError.Error(), "ROOT_HASH_MISMATCH")
}

func TestVerify_SignatureInvalidWhenWrongSigner(t *testing.T) {
	root := writeGovernanceTree(t)

	manifest, err := Build(BuildOptions{GovernanceDir: root, ReleaseVersion: "1.0.0"})
	require.NoError(t, err)

	v := vault.New(vault.NewInMemoryBackend())
	_, err = v.Generate(vault.RoleRelease, "pw")
	require.NoError(t, err)
	signed, err := Sign(*manifest, v, "pw")
	require.NoError(t, err)

	signed.Signatures[0].SignerAddress = "0x" + "0000000000000000000000000000000000000000000000000000000000000000"[:64]

	result := VerifyRelease(*signed, root)
	assert.False(t, result.OK)
	require.Len(t, result.SignatureErrs, 1)
	assert.Contains(t, result.SignatureErrs[0].Error(), "SIGNATURE_INVALID")
}

func TestValidateReleaseVersion_RejectsNonSemver(t *testing.T) {
	err := ValidateReleaseVersion("not-a-version")
	assert.Error(t, err)

	assert.NoError(t, ValidateReleaseVersion("1.2.3"))
}
