package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteLocal places a recording file with deterministic content under
// root, creating intermediate grouping directories as needed.
func WriteLocal(t *testing.T, root, relPath string, size int) string {
	t.Helper()

	abs := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, Content(filepath.Base(relPath), size), 0o644))
	return abs
}

// WriteLocalRaw places a file with arbitrary content under root.
func WriteLocalRaw(t *testing.T, root, relPath string, data []byte) string {
	t.Helper()

	abs := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, data, 0o644))
	return abs
}

// FileExists reports whether a path under root exists.
func FileExists(t *testing.T, root, relPath string) bool {
	t.Helper()

	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	if err == nil {
		return true
	}
	require.True(t, os.IsNotExist(err), "stat %s: %v", relPath, err)
	return false
}
