package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := [][]string{{"1", "SKU-1"}, {"2", "SKU-2"}}
	b := [][]string{{"1", "SKU-1"}, {"2", "SKU-2"}}
	reordered := [][]string{{"2", "SKU-2"}, {"1", "SKU-1"}}
	merged := [][]string{{"1", "SKU-1", "2", "SKU-2"}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(reordered))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(merged), "row boundaries are part of the fingerprint")
	assert.NotEqual(t, Fingerprint([][]string{{"ab", "c"}}), Fingerprint([][]string{{"a", "bc"}}))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
