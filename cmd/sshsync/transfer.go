package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/acolita/sshsync/internal/treesync"
)

func newGetCmd(a *app) *cobra.Command {
	var single bool

	cmd := &cobra.Command{
		Use:   "get REMOTE LOCAL",
		Short: "Download a remote file or directory tree",
		Long: `Download REMOTE to LOCAL. A directory is copied recursively, creating LOCAL
and its subdirectories as needed.

With --file, REMOTE must be a file; if LOCAL is an existing directory the
file is placed inside it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := a.clock.Now()
			return a.withEngine(func(e *treesync.Engine) error {
				var (
					r   *treesync.Report
					err error
				)
				if single {
					r, err = e.FetchOne(args[0], args[1])
				} else {
					r, err = e.Fetch(args[0], args[1])
				}
				if err != nil {
					return err
				}
				a.printReport("fetched", r, a.clock.Now().Sub(start))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&single, "file", false, "Copy a single file")
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	var single bool

	cmd := &cobra.Command{
		Use:   "put LOCAL REMOTE",
		Short: "Upload a local file or directory tree",
		Long: `Upload LOCAL to REMOTE, creating missing remote directories.

With --file, LOCAL must be a file; if REMOTE is an existing directory the
file is placed inside it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := a.clock.Now()
			return a.withEngine(func(e *treesync.Engine) error {
				var (
					r   *treesync.Report
					err error
				)
				if single {
					r, err = e.PushOne(args[0], args[1])
				} else {
					r, err = e.Push(args[0], args[1])
				}
				if err != nil {
					return err
				}
				a.printReport("pushed", r, a.clock.Now().Sub(start))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&single, "file", false, "Copy a single file")
	return cmd
}

func newWriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write REMOTE [FILE|-]",
		Short: "Write text to a remote file and make it executable",
		Long: `Replace REMOTE with the contents of FILE (or standard input when FILE is
omitted or "-") and set its mode to 0755.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 || args[1] == "-" {
				data, err = io.ReadAll(a.stdin)
			} else {
				data, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}

			return a.withEngine(func(e *treesync.Engine) error {
				if err := e.WriteRemoteFile(string(data), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "wrote %s (%d bytes, mode %#o)\n", args[0], len(data), uint32(treesync.ScriptMode))
				return nil
			})
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir REMOTE",
		Short: "Create a remote directory and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(e *treesync.Engine) error {
				ok, err := e.Dirs().EnsureDirectory(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("mkdir %s failed", args[0])
				}
				fmt.Fprintf(a.stdout, "created %s (%s)\n", args[0], e.Dirs().Strategy())
				return nil
			})
		},
	}
}
