package treesync

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolita/sshsync/internal/ports"
)

func TestRemoteKind(t *testing.T) {
	h := newHarness(t, Options{})
	h.writeRemote(t, "file.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(h.root, "dir"), 0o755))

	tests := []struct {
		name   string
		path   string
		want   Kind
		exists bool
		isDir  bool
		isFile bool
	}{
		{"file", h.remotePath("file.txt"), File, true, false, true},
		{"directory", h.remotePath("dir"), Directory, true, true, false},
		{"missing", h.remotePath("missing"), NonExistent, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := RemoteKind(h.remote, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.exists, RemoteExists(h.remote, tt.path))
			assert.Equal(t, tt.isDir, RemoteIsDir(h.remote, tt.path))
			assert.Equal(t, tt.isFile, RemoteIsFile(h.remote, tt.path))
		})
	}
}

// statErrorRemote fails every Stat with a fixed error.
type statErrorRemote struct {
	ports.RemoteFS
	err error
}

func (s statErrorRemote) Stat(string) (fs.FileInfo, error) {
	return nil, s.err
}

func TestRemoteKind_StrictOnOtherErrors(t *testing.T) {
	remote := statErrorRemote{err: fs.ErrPermission}

	_, err := RemoteKind(remote, "/secret")
	assert.ErrorIs(t, err, fs.ErrPermission)

	// The lenient predicates keep treating failures as absence.
	assert.False(t, RemoteExists(remote, "/secret"))
	assert.False(t, RemoteIsDir(remote, "/secret"))
	assert.False(t, RemoteIsFile(remote, "/secret"))
}

func TestEngine_StatErrorIsNotNotFound(t *testing.T) {
	local := newHarness(t, Options{}).local
	engine, err := NewEngine(statErrorRemote{err: errors.New("connection lost")}, nil, local, Options{})
	require.NoError(t, err)

	_, err = engine.Fetch("/anything", "/out")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection lost")
}

func TestLocalKind(t *testing.T) {
	h := newHarness(t, Options{})
	h.writeLocal(t, "/d/f", "x")

	assert.Equal(t, File, LocalKind(h.local, "/d/f"))
	assert.Equal(t, Directory, LocalKind(h.local, "/d"))
	assert.Equal(t, NonExistent, LocalKind(h.local, "/nope"))

	assert.True(t, LocalExists(h.local, "/d"))
	assert.True(t, LocalIsDir(h.local, "/d"))
	assert.True(t, LocalIsFile(h.local, "/d/f"))
	assert.False(t, LocalIsFile(h.local, "/d"))
	assert.False(t, LocalExists(h.local, "/nope"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "nonexistent", NonExistent.String())
	assert.Equal(t, "file", File.String())
	assert.Equal(t, "directory", Directory.String())
	assert.Equal(t, "other", Other.String())
}
