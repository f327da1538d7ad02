// Package billyfs adapts a go-billy filesystem to the FileSystem port.
//
// memfs backs the local side in tests; osfs rooted at a directory backs the
// CLI's --local-root option.
package billyfs

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/acolita/sshsync/internal/ports"
)

// FS implements ports.FileSystem over a billy.Filesystem.
type FS struct {
	fs billy.Filesystem
}

// New wraps an existing billy filesystem.
func New(bfs billy.Filesystem) *FS {
	return &FS{fs: bfs}
}

// NewMemory returns an empty in-memory filesystem.
func NewMemory() *FS {
	return New(memfs.New())
}

// NewOS returns a filesystem confined to root on the host.
func NewOS(root string) *FS {
	return New(osfs.New(root, osfs.WithBoundOS()))
}

// ReadFile reads the named file and returns its contents.
func (b *FS) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(b.fs, name)
}

// WriteFile writes data to the named file, creating it if necessary.
func (b *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return util.WriteFile(b.fs, name, data, perm)
}

// Stat returns file info for the named file.
func (b *FS) Stat(name string) (fs.FileInfo, error) {
	return b.fs.Stat(name)
}

// ReadDir lists a directory.
func (b *FS) ReadDir(name string) ([]fs.FileInfo, error) {
	infos, err := b.fs.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("billy: readdir %q: %w", name, err)
	}
	return infos, nil
}

// MkdirAll creates a directory and all parent directories.
func (b *FS) MkdirAll(path string, perm fs.FileMode) error {
	return b.fs.MkdirAll(path, perm)
}

// Open opens the named file for reading.
func (b *FS) Open(name string) (io.ReadCloser, error) {
	return b.fs.Open(name)
}

// Create creates or truncates the named file.
func (b *FS) Create(name string) (io.WriteCloser, error) {
	return b.fs.Create(name)
}

// Remove deletes the named file or empty directory.
func (b *FS) Remove(name string) error {
	return b.fs.Remove(name)
}

var _ ports.FileSystem = (*FS)(nil)
