package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/acolita/sshsync/internal/adapters/billyfs"
	"github.com/acolita/sshsync/internal/adapters/realclock"
	"github.com/acolita/sshsync/internal/adapters/realdialog"
	"github.com/acolita/sshsync/internal/config"
	"github.com/acolita/sshsync/internal/logging"
	"github.com/acolita/sshsync/internal/ports"
	"github.com/acolita/sshsync/internal/remote"
	"github.com/acolita/sshsync/internal/security"
	"github.com/acolita/sshsync/internal/treesync"
)

// app holds global flags and the process's I/O. Tests build their own.
type app struct {
	configPath  string
	hostName    string
	hostname    string
	user        string
	port        int
	passwordEnv string
	keyPath     string
	useAgent    bool
	insecure    bool
	knownHosts  string
	logLevel    string
	logFormat   string
	localRoot   string
	strategy    string
	exclude     []string

	cfg *config.Config

	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	isTTY    func() bool
	prompter ports.PasswordPrompter
	keyring  *security.KeyringStore
	clock    ports.Clock

	sessionOpts []remote.Option
}

func newApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		isTTY: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
		prompter: realdialog.New(),
		clock:    realclock.New(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sshsync",
		Short: "Run commands on remote hosts and sync directory trees over SFTP",
		Long: `sshsync opens an authenticated SSH session to a host, runs shell commands
and copies files or whole directory trees in either direction over SFTP.

Hosts come from the config file (--host NAME) or from the command line
(-H HOST -u USER [-p PORT]).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", config.DefaultConfigPath(), "Path to configuration file")
	f.StringVar(&a.hostName, "host", "", "Host name from the config file")
	f.StringVarP(&a.hostname, "hostname", "H", "", "Remote host address (ad-hoc, without config)")
	f.StringVarP(&a.user, "user", "u", "", "Remote user")
	f.IntVarP(&a.port, "port", "p", 0, "Remote SSH port (default 22)")
	f.StringVar(&a.passwordEnv, "password-env", "", "Environment variable holding the password")
	f.StringVar(&a.keyPath, "key", "", "Path to private key")
	f.BoolVar(&a.useAgent, "agent", false, "Authenticate with ssh-agent")
	f.BoolVar(&a.insecure, "insecure", false, "Skip host key verification")
	f.StringVar(&a.knownHosts, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	f.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	f.StringVar(&a.localRoot, "local-root", "", "Confine local paths to this directory")
	f.StringVar(&a.strategy, "mkdir-strategy", "", "Remote mkdir strategy: command or walk")
	f.StringSliceVar(&a.exclude, "exclude", nil, "Glob patterns to skip during tree transfers")

	root.AddCommand(
		newExecCmd(a),
		newGetCmd(a),
		newPutCmd(a),
		newWriteCmd(a),
		newMkdirCmd(a),
		newWatchCmd(a),
		newMCPCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the config and installs the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.strategy != "" {
		cfg.Sync.MkdirStrategy = a.strategy
	}
	cfg.Sync.Exclude = append(cfg.Sync.Exclude, a.exclude...)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Sanitize)
	a.cfg = cfg
	return nil
}

// hostConfig resolves the target host from --host or the ad-hoc flags.
// Explicit flags override the config entry.
func (a *app) hostConfig() (config.HostConfig, error) {
	var h config.HostConfig

	switch {
	case a.hostName != "":
		found, err := a.cfg.FindHost(a.hostName)
		if err != nil {
			return h, err
		}
		h = *found
		if a.hostname != "" {
			h.Host = a.hostname
		}
	case a.hostname != "":
		h = config.HostConfig{Name: a.hostname, Host: a.hostname}
		h.Auth.Type = "password"
		h.Auth.UseKeyring = true
	default:
		return h, errors.New("either --host or --hostname is required")
	}

	if a.user != "" {
		h.User = a.user
	}
	if a.port != 0 {
		h.Port = a.port
	}
	if a.passwordEnv != "" {
		h.Auth.PasswordEnv = a.passwordEnv
	}
	switch {
	case a.keyPath != "":
		h.Auth.Type = "key"
		h.Auth.Path = a.keyPath
	case a.useAgent:
		h.Auth.Type = "agent"
	}
	if a.knownHosts != "" {
		h.KnownHosts = a.knownHosts
	}
	if a.insecure {
		h.InsecureIgnoreHostKey = true
	}

	if h.User == "" {
		return h, fmt.Errorf("host %s: user is required (-u)", h.Name)
	}
	return h, nil
}

// credentials prompts only on a terminal and only when no key is in play.
func (a *app) credentials(h config.HostConfig) *security.Credentials {
	keyring := a.keyring
	if keyring == nil && h.Auth.UseKeyring {
		keyring = security.NewKeyringStore(true)
	}
	var prompter ports.PasswordPrompter
	if a.prompter != nil && h.Auth.Type != "key" && a.isTTY != nil && a.isTTY() {
		prompter = a.prompter
	}
	return security.NewCredentials(keyring, prompter)
}

func (a *app) params() (remote.Params, error) {
	h, err := a.hostConfig()
	if err != nil {
		return remote.Params{}, err
	}
	return remote.ParamsForHost(h, a.cfg.Timeout, a.credentials(h))
}

func (a *app) withSession(fn func(*remote.Session) error) error {
	params, err := a.params()
	if err != nil {
		return err
	}
	opts := append([]remote.Option{remote.WithClock(a.clock)}, a.sessionOpts...)
	if a.localRoot != "" {
		opts = append(opts, remote.WithLocalFS(billyfs.NewOS(a.localRoot)))
	}
	return remote.With(params, fn, opts...)
}

func (a *app) withEngine(fn func(*treesync.Engine) error) error {
	strategy, err := treesync.ParseStrategy(a.cfg.Sync.MkdirStrategy)
	if err != nil {
		return err
	}
	opts := treesync.Options{Strategy: strategy, Exclude: a.cfg.Sync.Exclude}
	return a.withSession(func(sess *remote.Session) error {
		engine, err := sess.Engine(opts)
		if err != nil {
			return err
		}
		return fn(engine)
	})
}

func (a *app) printReport(verb string, r *treesync.Report, elapsed time.Duration) {
	for _, t := range r.Transfers {
		fmt.Fprintf(a.stdout, "%s -> %s (%d bytes)\n", t.Source, t.Destination, t.Bytes)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(a.stdout, "skipped %s\n", s)
	}
	fmt.Fprintf(a.stdout, "%s %d files, %d bytes in %s\n", verb, r.Files(), r.Bytes(), elapsed.Round(time.Millisecond))
}
