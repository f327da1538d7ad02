// Package realfs provides a real implementation of the FileSystem port using the os package.
package realfs

import (
	"io"
	"io/fs"
	"os"

	"github.com/acolita/sshsync/internal/ports"
)

// FS implements ports.FileSystem using the standard os package.
type FS struct{}

// New returns a new real FileSystem.
func New() *FS {
	return &FS{}
}

// ReadFile reads the named file and returns its contents.
func (f *FS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile writes data to the named file, creating it if necessary.
func (f *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// Stat returns file info for the named file, following symlinks.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// ReadDir returns the directory entries in the order the OS yields them.
func (f *FS) ReadDir(name string) ([]fs.FileInfo, error) {
	dir, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	// Readdir(-1) does not sort, unlike os.ReadDir.
	return dir.Readdir(-1)
}

// MkdirAll creates a directory and all parent directories.
func (f *FS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Open opens the named file for reading.
func (f *FS) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// Create creates or truncates the named file.
func (f *FS) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// Remove deletes the named file or empty directory.
func (f *FS) Remove(name string) error {
	return os.Remove(name)
}

var _ ports.FileSystem = (*FS)(nil)
