package treesync

import (
	"path"
	"path/filepath"
)

// joinLocal joins local path elements and normalizes the result to forward
// slashes so it can be compared with and mapped onto remote paths.
func joinLocal(elem ...string) string {
	return filepath.ToSlash(filepath.Join(elem...))
}

// localDir returns the parent of a local path. A trailing separator marks
// p itself as a directory, so its parent is p.
func localDir(p string) string {
	return filepath.ToSlash(filepath.Dir(filepath.FromSlash(p)))
}

func localBase(p string) string {
	return path.Base(filepath.ToSlash(p))
}

// remoteDir mirrors localDir for remote paths, which always use forward
// slashes.
func remoteDir(p string) string {
	return path.Dir(p)
}
