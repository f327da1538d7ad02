package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/acolita/sshsync/internal/config"
	"github.com/acolita/sshsync/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve remote_exec, remote_get, remote_put and remote_write as MCP tools on stdio",
		Long: `Serve the configured hosts as MCP tools over stdio. Edits to the config file
are picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("starting sshsync MCP server",
				slog.String("version", Version),
				slog.Int("hosts", len(a.cfg.Hosts)))

			server := mcp.NewServer(a.cfg,
				mcp.WithConfigPath(a.configPath),
				mcp.WithVersion(Version),
				mcp.WithSessionOptions(a.sessionOpts...),
			)

			var watcher *config.Watcher
			if _, err := os.Stat(a.configPath); err == nil {
				watcher, err = config.NewWatcher(a.configPath, func(next *config.Config) {
					next.Sync.Exclude = append(next.Sync.Exclude, a.exclude...)
					server.UpdateConfig(next)
				})
				if err != nil {
					slog.Warn("config hot-reload disabled", slog.String("error", err.Error()))
				} else {
					slog.Info("config hot-reload enabled", slog.String("path", a.configPath))
					defer watcher.Close()
				}
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				<-sigChan
				slog.Info("received shutdown signal")
				if watcher != nil {
					watcher.Close()
				}
				os.Exit(0)
			}()

			return server.Run()
		},
	}
}
