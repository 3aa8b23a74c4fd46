package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "nested", "gbuffer.dxil")

	require.NoError(t, WriteArtifact(path, []byte("first")))
	require.NoError(t, WriteArtifact(path, []byte("second")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "No temp files should be left behind")
}

func TestWriteArtifact_EmptyBytecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dxil")

	err := WriteArtifact(path, nil)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestOutputSize(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.dxil")
	require.NoError(t, os.WriteFile(a, []byte("12345"), 0o644))

	assert.Equal(t, int64(5), OutputSize(a, "", filepath.Join(dir, "missing.spv"), dir))
}
