package release

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aegisrail/govkernel/pkg/canonicalize"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func joinGovernance(governanceDir, relPath string) string {
	return filepath.Join(governanceDir, filepath.FromSlash(relPath))
}

func sha256Hex(data []byte) string {
	return canonicalize.SHA256(data)
}
