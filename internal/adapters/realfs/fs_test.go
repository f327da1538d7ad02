package realfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := New()

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, fsys.MkdirAll(nested, 0o755))

	w, err := fsys.Create(filepath.Join(nested, "f.txt"))
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fsys.Open(filepath.Join(nested, "f.txt"))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, fsys.Remove(filepath.Join(nested, "f.txt")))
	assert.NoFileExists(t, filepath.Join(nested, "f.txt"))
}

func TestFS_ReadDir(t *testing.T) {
	dir := t.TempDir()
	fsys := New()

	for _, name := range []string{"z", "a", "m"} {
		require.NoError(t, fsys.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	infos, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	assert.ElementsMatch(t, []string{"a", "m", "sub", "z"}, names)
}

func TestFS_StatMissing(t *testing.T) {
	_, err := New().Stat(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err), "expected not-exist error, got %v", err)
}
