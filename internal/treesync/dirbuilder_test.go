package treesync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectory_CreatesAllLevels(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCommand, StrategyWalk} {
		t.Run(string(strategy), func(t *testing.T) {
			h := newHarness(t, Options{Strategy: strategy})
			target := h.remotePath("a", "b", "c")

			ok, err := h.engine.Dirs().EnsureDirectory(target)
			require.NoError(t, err)
			require.True(t, ok)

			for _, dir := range []string{"a", "a/b", "a/b/c"} {
				info, err := os.Stat(filepath.Join(h.root, dir))
				require.NoError(t, err)
				assert.True(t, info.IsDir())
			}

			mkdirs := len(h.remote.mkdirs)
			commands := len(h.runner.commands)

			ok, err = h.engine.Dirs().EnsureDirectory(target)
			require.NoError(t, err)
			assert.True(t, ok)

			switch strategy {
			case StrategyWalk:
				assert.Equal(t, 3, mkdirs, "walk creates each missing segment once")
				assert.Equal(t, mkdirs, len(h.remote.mkdirs), "second call must not create anything")
				assert.Zero(t, commands)
			case StrategyCommand:
				assert.Zero(t, mkdirs)
				assert.Equal(t, commands+1, len(h.runner.commands))
			}
		})
	}
}

func TestEnsureDirectory_NoOps(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCommand, StrategyWalk} {
		t.Run(string(strategy), func(t *testing.T) {
			h := newHarness(t, Options{Strategy: strategy})

			for _, p := range []string{"", "/"} {
				ok, err := h.engine.Dirs().EnsureDirectory(p)
				require.NoError(t, err)
				assert.True(t, ok, "EnsureDirectory(%q)", p)
			}
			assert.Empty(t, h.remote.mkdirs)
			assert.Empty(t, h.runner.commands)
		})
	}
}

func TestEnsureDirectory_WalkRelativeRestoresCwd(t *testing.T) {
	h := newHarness(t, Options{Strategy: StrategyWalk})
	require.NoError(t, h.remote.Chdir(h.root))

	ok, err := h.engine.Dirs().EnsureDirectory("rel/x")
	require.NoError(t, err)
	require.True(t, ok)

	info, err := os.Stat(filepath.Join(h.root, "rel", "x"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	wd, err := h.remote.Getwd()
	require.NoError(t, err)
	real, err := filepath.EvalSymlinks(h.root)
	require.NoError(t, err)
	assert.Contains(t, []string{h.root, real}, wd)
}

func TestEnsureDirectory_CommandFailure(t *testing.T) {
	h := newHarness(t, Options{Strategy: StrategyCommand})
	h.writeRemote(t, "file", "x")

	ok, err := h.engine.Dirs().EnsureDirectory(h.remotePath("file", "sub"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureDirectory_WalkThroughFile(t *testing.T) {
	h := newHarness(t, Options{Strategy: StrategyWalk})
	h.writeRemote(t, "file", "x")

	ok, err := h.engine.Dirs().EnsureDirectory(h.remotePath("file", "sub"))
	require.Error(t, err)
	assert.False(t, ok)
}

func TestEnsureDirectory_QuotesPath(t *testing.T) {
	h := newHarness(t, Options{Strategy: StrategyCommand})
	target := h.remotePath("with space", "it's")

	ok, err := h.engine.Dirs().EnsureDirectory(target)
	require.NoError(t, err)
	require.True(t, ok)

	info, err := os.Stat(filepath.FromSlash(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	quoted := "'" + strings.ReplaceAll(target, "'", `'"'"'`) + "'"
	require.Len(t, h.runner.commands, 1)
	assert.Equal(t, "mkdir -p -- "+quoted, h.runner.commands[0])
}

func TestEnsureDirectory_CommandArgument(t *testing.T) {
	h := newHarness(t, Options{Strategy: StrategyCommand})

	safe := h.remotePath("app-1", "data_2")
	ok, err := h.engine.Dirs().EnsureDirectory(safe)
	require.NoError(t, err)
	require.True(t, ok)

	hostile := h.remotePath("$(touch pwned)")
	ok, err = h.engine.Dirs().EnsureDirectory(hostile)
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, h.runner.commands, 2)
	assert.Equal(t, "mkdir -p -- "+safe, h.runner.commands[0], "safe paths go unquoted")
	assert.Equal(t, "mkdir -p -- '"+hostile+"'", h.runner.commands[1])
	assert.DirExists(t, filepath.FromSlash(hostile))
	assert.NoFileExists(t, "pwned")
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyCommand, false},
		{"command", StrategyCommand, false},
		{" Walk ", StrategyWalk, false},
		{"rsync", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseStrategy(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
