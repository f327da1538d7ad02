// Package treesync reconciles directory trees between the local filesystem
// and a remote host over SFTP.
//
// Fetch and Push walk a source tree recursively, creating missing
// directories on the destination side and copying each regular file.
// Paths are re-stat'ed at every step; nothing about either side is cached.
package treesync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/acolita/sshsync/internal/ports"
)

// ScriptMode is the permission applied by WriteRemoteFile.
const ScriptMode fs.FileMode = 0o755

// localDirMode is used for directories created on the local side.
const localDirMode fs.FileMode = 0o755

// Options configures an Engine.
type Options struct {
	Strategy Strategy
	Exclude  []string
}

// Engine runs transfers between one remote session and the local
// filesystem. It is not safe for concurrent use.
type Engine struct {
	remote  ports.RemoteFS
	local   ports.FileSystem
	dirs    *DirBuilder
	exclude *Matcher
}

// NewEngine builds an Engine. runner is only consulted by StrategyCommand.
func NewEngine(remote ports.RemoteFS, runner ports.CommandRunner, local ports.FileSystem, opts Options) (*Engine, error) {
	matcher, err := NewMatcher(opts.Exclude)
	if err != nil {
		return nil, err
	}
	return &Engine{
		remote:  remote,
		local:   local,
		dirs:    NewDirBuilder(remote, runner, opts.Strategy),
		exclude: matcher,
	}, nil
}

// Dirs returns the engine's remote directory builder.
func (e *Engine) Dirs() *DirBuilder {
	return e.dirs
}

// Excluded reports whether the entry at rel (relative to a transfer root)
// would be skipped.
func (e *Engine) Excluded(rel string) bool {
	return e.exclude.Excluded(path.Base(rel), rel)
}

// Fetch downloads remoteSrc to localDst. A remote directory is mirrored
// entry by entry into localDst, which is created when missing; a remote
// file is handled by FetchOne.
func (e *Engine) Fetch(remoteSrc, localDst string) (*Report, error) {
	report := &Report{}
	if err := e.fetch(remoteSrc, localDst, "", report); err != nil {
		slog.Error("fetch failed",
			slog.String("remote", remoteSrc),
			slog.String("local", localDst),
			slog.String("error", err.Error()))
		return report, err
	}
	return report, nil
}

func (e *Engine) fetch(src, dst, rel string, report *Report) error {
	kind, err := RemoteKind(e.remote, src)
	if err != nil {
		return fmt.Errorf("stat remote %s: %w", src, err)
	}

	switch kind {
	case NonExistent:
		return &NotFoundError{Side: Remote, Path: src, Destination: dst}

	case Directory:
		switch LocalKind(e.local, dst) {
		case NonExistent:
			if err := e.local.MkdirAll(dst, localDirMode); err != nil {
				return fmt.Errorf("create local directory %s: %w", dst, err)
			}
			report.created(dst)
		case Directory:
		default:
			return &TypeMismatchError{Source: src, Destination: dst, Reason: "remote directory onto local non-directory"}
		}

		entries, err := e.remote.ReadDir(src)
		if err != nil {
			return fmt.Errorf("list remote %s: %w", src, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			childRel := path.Join(rel, name)
			childSrc := path.Join(src, name)
			if e.exclude.Excluded(name, childRel) {
				report.skipped(childSrc)
				continue
			}
			if err := e.fetch(childSrc, joinLocal(dst, name), childRel, report); err != nil {
				return err
			}
		}
		return nil

	case File:
		return e.fetchOne(src, dst, report)

	default:
		slog.Debug("skipping remote special file", slog.String("path", src))
		report.skipped(src)
		return nil
	}
}

// FetchOne downloads a single remote file. Missing local parents are
// created; a localPath ending in a separator is created as a directory.
// When localPath is an existing directory the file lands inside it under
// the remote base name.
func (e *Engine) FetchOne(remotePath, localPath string) (*Report, error) {
	report := &Report{}
	if err := e.fetchOne(remotePath, localPath, report); err != nil {
		slog.Error("fetch failed",
			slog.String("remote", remotePath),
			slog.String("local", localPath),
			slog.String("error", err.Error()))
		return report, err
	}
	return report, nil
}

func (e *Engine) fetchOne(remotePath, localPath string, report *Report) error {
	kind, err := RemoteKind(e.remote, remotePath)
	if err != nil {
		return fmt.Errorf("stat remote %s: %w", remotePath, err)
	}
	switch kind {
	case NonExistent:
		return &NotFoundError{Side: Remote, Path: remotePath, Destination: localPath}
	case Directory:
		return &TypeMismatchError{Source: remotePath, Destination: localPath, Reason: "single-file fetch of a directory"}
	}

	if parent := localDir(localPath); !LocalExists(e.local, parent) {
		if err := e.local.MkdirAll(parent, localDirMode); err != nil {
			return fmt.Errorf("create local directory %s: %w", parent, err)
		}
		report.created(parent)
	}

	if LocalIsDir(e.local, localPath) {
		localPath = joinLocal(localPath, path.Base(remotePath))
	}

	out, err := e.local.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local %s: %w", localPath, err)
	}
	n, err := e.remote.Download(remotePath, out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := e.local.Remove(localPath); rmErr != nil {
			slog.Warn("could not remove partial download",
				slog.String("local", localPath),
				slog.String("error", rmErr.Error()))
		}
		return fmt.Errorf("download %s to %s: %w", remotePath, localPath, err)
	}

	report.transfer(Download, remotePath, localPath, n)
	slog.Info("received",
		slog.String("remote", remotePath),
		slog.String("local", localPath),
		slog.Int64("bytes", n))
	return nil
}

// Push uploads localSrc to remoteDst. A local directory is mirrored entry
// by entry into remoteDst, which is created when missing; a local file is
// handled by PushOne.
func (e *Engine) Push(localSrc, remoteDst string) (*Report, error) {
	report := &Report{}
	if err := e.push(localSrc, remoteDst, "", report); err != nil {
		slog.Error("push failed",
			slog.String("local", localSrc),
			slog.String("remote", remoteDst),
			slog.String("error", err.Error()))
		return report, err
	}
	return report, nil
}

func (e *Engine) push(src, dst, rel string, report *Report) error {
	switch LocalKind(e.local, src) {
	case NonExistent:
		return &NotFoundError{Side: Local, Path: src, Destination: dst}

	case Directory:
		kind, err := RemoteKind(e.remote, dst)
		if err != nil {
			return fmt.Errorf("stat remote %s: %w", dst, err)
		}
		switch kind {
		case NonExistent:
			if err := e.ensureRemoteDir(dst, report); err != nil {
				return err
			}
		case Directory:
		default:
			return &TypeMismatchError{Source: src, Destination: dst, Reason: "local directory onto remote non-directory"}
		}

		entries, err := e.local.ReadDir(src)
		if err != nil {
			return fmt.Errorf("list local %s: %w", src, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			childRel := path.Join(rel, name)
			childSrc := joinLocal(src, name)
			if e.exclude.Excluded(name, childRel) {
				report.skipped(childSrc)
				continue
			}
			if err := e.push(childSrc, path.Join(dst, name), childRel, report); err != nil {
				return err
			}
		}
		return nil

	case File:
		return e.pushOne(src, dst, report)

	default:
		slog.Debug("skipping local special file", slog.String("path", src))
		report.skipped(src)
		return nil
	}
}

// PushOne uploads a single local file. Missing remote parents are created
// through the directory builder; a remotePath ending in "/" is created as a
// directory. When remotePath is an existing remote directory the file lands
// inside it under the local base name.
func (e *Engine) PushOne(localPath, remotePath string) (*Report, error) {
	report := &Report{}
	if err := e.pushOne(localPath, remotePath, report); err != nil {
		slog.Error("push failed",
			slog.String("local", localPath),
			slog.String("remote", remotePath),
			slog.String("error", err.Error()))
		return report, err
	}
	return report, nil
}

func (e *Engine) pushOne(localPath, remotePath string, report *Report) error {
	switch LocalKind(e.local, localPath) {
	case NonExistent:
		return &NotFoundError{Side: Local, Path: localPath, Destination: remotePath}
	case Directory:
		return &TypeMismatchError{Source: localPath, Destination: remotePath, Reason: "single-file push of a directory"}
	}

	parent := remoteDir(remotePath)
	parentKind, err := RemoteKind(e.remote, parent)
	if err != nil {
		return fmt.Errorf("stat remote %s: %w", parent, err)
	}
	if parentKind == NonExistent {
		if err := e.ensureRemoteDir(parent, report); err != nil {
			return err
		}
	}

	kind, err := RemoteKind(e.remote, remotePath)
	if err != nil {
		return fmt.Errorf("stat remote %s: %w", remotePath, err)
	}
	if kind == Directory {
		remotePath = path.Join(remotePath, localBase(localPath))
	}

	in, err := e.local.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local %s: %w", localPath, err)
	}
	defer in.Close()

	n, err := e.remote.Upload(in, remotePath)
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", localPath, remotePath, err)
	}

	report.transfer(Upload, localPath, remotePath, n)
	slog.Info("sent",
		slog.String("local", localPath),
		slog.String("remote", remotePath),
		slog.Int64("bytes", n))
	return nil
}

func (e *Engine) ensureRemoteDir(dir string, report *Report) error {
	ok, err := e.dirs.EnsureDirectory(dir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("create remote directory %s: command failed", dir)
	}
	report.created(dir)
	return nil
}

// WriteRemoteFile creates or truncates remotePath, writes text to it and
// sets its mode to ScriptMode. It refuses to replace a directory.
func (e *Engine) WriteRemoteFile(text, remotePath string) error {
	kind, err := RemoteKind(e.remote, remotePath)
	if err != nil {
		return fmt.Errorf("stat remote %s: %w", remotePath, err)
	}
	if kind == Directory {
		err := &TypeMismatchError{Source: "text", Destination: remotePath, Reason: "remote path is a directory"}
		slog.Error("write failed", slog.String("remote", remotePath), slog.String("error", err.Error()))
		return err
	}

	if err := e.remote.WriteFile(remotePath, []byte(text), ScriptMode); err != nil {
		return fmt.Errorf("write remote %s: %w", remotePath, err)
	}
	slog.Info("wrote",
		slog.String("remote", remotePath),
		slog.Int("bytes", len(text)),
		slog.String("mode", ScriptMode.String()))
	return nil
}
