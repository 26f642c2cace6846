package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	for _, name := range []string{"a.hcl", "b.yaml", "notes.txt", "sub/c.hcl", "sub/d.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	// --- Act ---
	got, err := FindFiles([]string{dir, filepath.Join(dir, "a.hcl"), filepath.Join(dir, "notes.txt")}, ".hcl", ".yml")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "sub", "c.hcl"),
		filepath.Join(dir, "sub", "d.yml"),
	}, got)

	_, err = FindFiles([]string{filepath.Join(dir, "missing")}, ".hcl")
	assert.ErrorContains(t, err, "error accessing path")

	assert.Panics(t, func() { HasExtension("a.hcl", "") })
}
