package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hosts: []\n"), 0o644))

	changed := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changed <- c })
	require.NoError(t, err)
	defer w.Close()

	require.Empty(t, w.Config().Hosts)

	update := "hosts:\n  - name: web1\n    host: h\n    user: u\n"
	require.NoError(t, os.WriteFile(path, []byte(update), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if len(c.Hosts) == 1 {
				assert.Len(t, w.Config().Hosts, 1, "Config() not updated")
				return
			}
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
}

func TestWatcher_KeepsPreviousOnInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	good := "hosts:\n  - name: web1\n    host: h\n    user: u\n"
	require.NoError(t, os.WriteFile(path, []byte(good), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Close()

	w.reload()
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  mkdir_strategy: bogus\n"), 0o644))
	w.reload()

	assert.Len(t, w.Config().Hosts, 1, "invalid reload replaced config")
}

func TestWatcher_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second Close")
}
