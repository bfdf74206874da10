package cryptox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pepper")

	first, err := LoadOrCreateSecret(path, 32)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// second call reads back the same value
	second, err := LoadOrCreateSecret(path, 32)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLoadOrCreateSecret_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadOrCreateSecret(filepath.Join(dir, "x"), 0)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	_, err = LoadOrCreateSecret(empty, 32)
	require.Error(t, err)
}
