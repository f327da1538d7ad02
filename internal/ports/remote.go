package ports

import (
	"io"
	"io/fs"
)

// RemoteFS is the file-operations channel of a remote session.
type RemoteFS interface {
	// Stat returns file information for the given remote path.
	Stat(path string) (fs.FileInfo, error)

	// ReadDir lists the immediate entries of a remote directory.
	ReadDir(path string) ([]fs.FileInfo, error)

	// Mkdir creates a single remote directory.
	Mkdir(path string) error

	// Chdir changes the client-side working directory used to resolve
	// relative paths.
	Chdir(path string) error

	// Getwd returns the client-side working directory.
	Getwd() (string, error)

	// Download copies the remote file into w.
	Download(remotePath string, w io.Writer) (int64, error)

	// Upload copies r into the remote file, creating or truncating it.
	Upload(r io.Reader, remotePath string) (int64, error)

	// WriteFile replaces the remote file with data and applies perm.
	WriteFile(path string, data []byte, perm fs.FileMode) error
}

// CommandRunner is the command-execution channel of a remote session.
type CommandRunner interface {
	// Run executes command in a remote shell and reports whether it
	// exited with status 0.
	Run(command string) (bool, error)
}
