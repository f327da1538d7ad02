package treesync

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/acolita/sshsync/internal/ports"
)

// Strategy selects how missing remote directories are created.
type Strategy string

const (
	// StrategyCommand runs a single `mkdir -p` on the remote shell.
	StrategyCommand Strategy = "command"
	// StrategyWalk changes into each segment over SFTP, creating the ones
	// that are missing. It needs no remote shell.
	StrategyWalk Strategy = "walk"
)

// ParseStrategy converts a configuration value into a Strategy. The empty
// string selects StrategyCommand.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyCommand:
		return StrategyCommand, nil
	case StrategyWalk:
		return StrategyWalk, nil
	default:
		return "", fmt.Errorf("unknown mkdir strategy %q (want %q or %q)", s, StrategyCommand, StrategyWalk)
	}
}

// DirBuilder ensures remote directories exist with mkdir -p semantics.
type DirBuilder struct {
	remote   ports.RemoteFS
	runner   ports.CommandRunner
	strategy Strategy
}

// NewDirBuilder returns a DirBuilder. runner may be nil for StrategyWalk.
func NewDirBuilder(remote ports.RemoteFS, runner ports.CommandRunner, strategy Strategy) *DirBuilder {
	if strategy == "" {
		strategy = StrategyCommand
	}
	return &DirBuilder{remote: remote, runner: runner, strategy: strategy}
}

// Strategy returns the configured strategy.
func (b *DirBuilder) Strategy() Strategy {
	return b.strategy
}

// EnsureDirectory creates p and every missing ancestor. It reports whether
// the directory is now in place. Existing directories, "/" and "" are
// no-op successes.
func (b *DirBuilder) EnsureDirectory(p string) (bool, error) {
	if p == "" || p == "/" {
		return true, nil
	}

	switch b.strategy {
	case StrategyWalk:
		if err := b.ensureByWalk(p); err != nil {
			return false, err
		}
		return true, nil
	default:
		return b.ensureByCommand(p)
	}
}

func (b *DirBuilder) ensureByCommand(p string) (bool, error) {
	if b.runner == nil {
		return false, fmt.Errorf("mkdir %s: no command runner", p)
	}
	ok, err := b.runner.Run("mkdir -p -- " + shellescape.Quote(p))
	if err != nil {
		return false, fmt.Errorf("mkdir -p %s: %w", p, err)
	}
	if !ok {
		slog.Error("remote mkdir failed", slog.String("path", p))
	}
	return ok, nil
}

// ensureByWalk anchors relative paths at the current working directory and
// restores that directory when done, so the walk's chdir calls never leak
// into later relative lookups.
func (b *DirBuilder) ensureByWalk(p string) error {
	start, err := b.remote.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	if !path.IsAbs(p) {
		p = path.Join(start, p)
	}
	defer func() {
		if err := b.remote.Chdir(start); err != nil {
			slog.Warn("restore remote working directory failed",
				slog.String("path", start),
				slog.String("error", err.Error()))
		}
	}()
	return b.walk(p)
}

func (b *DirBuilder) walk(p string) error {
	if p == "/" {
		return b.remote.Chdir("/")
	}
	if p == "" {
		return nil
	}
	if err := b.remote.Chdir(p); err == nil {
		return nil
	}

	parent, base := path.Split(strings.TrimRight(p, "/"))
	if err := b.walk(parent); err != nil {
		return err
	}
	if err := b.remote.Mkdir(base); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	if err := b.remote.Chdir(base); err != nil {
		return fmt.Errorf("chdir %s: %w", p, err)
	}
	return nil
}
