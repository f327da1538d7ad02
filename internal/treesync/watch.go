package treesync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/acolita/sshsync/internal/ports"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of changes to
// settle before pushing.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures a Watcher.
type WatchOptions struct {
	Debounce time.Duration
	Clock    ports.Clock
	// OnSync, when set, is called after every flush with the merged report
	// and the first error encountered.
	OnSync func(*Report, error)
}

// Watcher pushes a local directory tree to a remote directory whenever
// files in it change. Removals are not propagated.
type Watcher struct {
	engine     *Engine
	localRoot  string
	remoteRoot string
	debounce   time.Duration
	clock      ports.Clock
	onSync     func(*Report, error)

	ready     chan struct{}
	readyOnce sync.Once
}

// NewWatcher returns a Watcher for localRoot, which must be a directory on
// the real filesystem.
func NewWatcher(engine *Engine, localRoot, remoteRoot string, opts WatchOptions) (*Watcher, error) {
	if !LocalIsDir(engine.local, localRoot) {
		return nil, fmt.Errorf("watch %s: not a local directory", localRoot)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		return nil, errors.New("watch: clock is required")
	}
	return &Watcher{
		engine:     engine,
		localRoot:  filepath.Clean(localRoot),
		remoteRoot: remoteRoot,
		debounce:   opts.Debounce,
		clock:      opts.Clock,
		onSync:     opts.OnSync,
		ready:      make(chan struct{}),
	}, nil
}

// Ready is closed once every directory under the root is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.localRoot); err != nil {
		return err
	}
	w.readyOnce.Do(func() { close(w.ready) })

	slog.Info("watching",
		slog.String("local", w.localRoot),
		slog.String("remote", w.remoteRoot),
		slog.Duration("debounce", w.debounce))

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, keep := w.relevant(event)
			if !keep {
				continue
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.addTree(fsw, event.Name); err != nil {
					slog.Warn("watch new directory failed",
						slog.String("path", event.Name),
						slog.String("error", err.Error()))
				}
			}
			pending[rel] = struct{}{}
			flush = w.clock.After(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))

		case <-flush:
			flush = nil
			w.sync(pending)
			pending = make(map[string]struct{})
		}
	}
}

// relevant maps an event to a path relative to the root, dropping events
// that should not cause a push.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Chmod) {
		return "", false
	}
	rel, err := filepath.Rel(w.localRoot, event.Name)
	if err != nil || rel == "." {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.engine.Excluded(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) sync(pending map[string]struct{}) {
	rels := make([]string, 0, len(pending))
	for rel := range pending {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	merged := &Report{}
	var firstErr error
	for _, rel := range rels {
		local := joinLocal(w.localRoot, rel)
		remote := path.Join(w.remoteRoot, rel)

		report, err := w.engine.Push(local, remote)
		merged.Merge(report)
		if errors.Is(err, ErrNotFound) {
			// Removed again before the flush.
			continue
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	slog.Info("watch sync",
		slog.Int("paths", len(rels)),
		slog.Int("files", merged.Files()),
		slog.Int64("bytes", merged.Bytes()))

	if w.onSync != nil {
		w.onSync(merged, firstErr)
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.localRoot {
			if rel, err := filepath.Rel(w.localRoot, p); err == nil && w.engine.Excluded(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
