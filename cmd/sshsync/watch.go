package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/acolita/sshsync/internal/treesync"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch LOCAL REMOTE",
		Short: "Push LOCAL to REMOTE, then again whenever files change",
		Long: `Push the local directory LOCAL to REMOTE and keep watching it. Changed and
new files are pushed after changes settle for --debounce. Deletions are not
propagated. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.localRoot != "" {
				return errors.New("watch does not support --local-root")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, args[0], args[1], debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", treesync.DefaultDebounce, "Quiet period before pushing changes")
	return cmd
}

func (a *app) watch(ctx context.Context, local, remotePath string, debounce time.Duration) error {
	return a.withEngine(func(e *treesync.Engine) error {
		start := a.clock.Now()
		r, err := e.Push(local, remotePath)
		if err != nil {
			return err
		}
		a.printReport("pushed", r, a.clock.Now().Sub(start))

		w, err := treesync.NewWatcher(e, local, remotePath, treesync.WatchOptions{
			Debounce: debounce,
			Clock:    a.clock,
			OnSync: func(r *treesync.Report, err error) {
				if err != nil {
					fmt.Fprintf(a.stderr, "sync failed: %v\n", err)
					return
				}
				for _, t := range r.Transfers {
					fmt.Fprintf(a.stdout, "%s -> %s (%d bytes)\n", t.Source, t.Destination, t.Bytes)
				}
			},
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "watching %s\n", local)
		return w.Run(ctx)
	})
}
