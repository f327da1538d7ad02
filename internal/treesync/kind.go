package treesync

import (
	"io/fs"

	"github.com/acolita/sshsync/internal/ports"
	"github.com/acolita/sshsync/internal/sftp"
)

// Kind classifies what a path refers to at the moment it is queried.
type Kind int

const (
	NonExistent Kind = iota
	File
	Directory
	// Other exists but is neither a regular file nor a directory
	// (socket, device, fifo).
	Other
)

func (k Kind) String() string {
	switch k {
	case NonExistent:
		return "nonexistent"
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "other"
	}
}

func kindOf(info fs.FileInfo) Kind {
	switch {
	case info.IsDir():
		return Directory
	case info.Mode().IsRegular():
		return File
	default:
		return Other
	}
}

// RemoteKind stats path on the remote side. A missing path is NonExistent
// with a nil error; any other stat failure is returned so that permission
// or transport problems are not mistaken for absence.
func RemoteKind(remote ports.RemoteFS, path string) (Kind, error) {
	info, err := remote.Stat(path)
	if err != nil {
		if sftp.IsNotExist(err) {
			return NonExistent, nil
		}
		return NonExistent, err
	}
	return kindOf(info), nil
}

// RemoteExists reports whether a stat on path succeeds. Errors of any kind
// count as absence.
func RemoteExists(remote ports.RemoteFS, path string) bool {
	_, err := remote.Stat(path)
	return err == nil
}

// RemoteIsDir reports whether path is a remote directory; errors yield false.
func RemoteIsDir(remote ports.RemoteFS, path string) bool {
	kind, err := RemoteKind(remote, path)
	return err == nil && kind == Directory
}

// RemoteIsFile reports whether path is a remote regular file; errors yield false.
func RemoteIsFile(remote ports.RemoteFS, path string) bool {
	kind, err := RemoteKind(remote, path)
	return err == nil && kind == File
}

// LocalKind classifies a local path. It never fails: any stat error is
// reported as NonExistent.
func LocalKind(local ports.FileSystem, path string) Kind {
	info, err := local.Stat(path)
	if err != nil {
		return NonExistent
	}
	return kindOf(info)
}

func LocalExists(local ports.FileSystem, path string) bool {
	return LocalKind(local, path) != NonExistent
}

func LocalIsDir(local ports.FileSystem, path string) bool {
	return LocalKind(local, path) == Directory
}

func LocalIsFile(local ports.FileSystem, path string) bool {
	return LocalKind(local, path) == File
}
