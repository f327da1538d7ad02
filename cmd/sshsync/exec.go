package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acolita/sshsync/internal/recovery"
	"github.com/acolita/sshsync/internal/remote"
)

func newExecCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "exec COMMAND...",
		Short: "Run commands on the remote host",
		Long: `Run each argument as a separate shell command, in order. A failing command
does not stop the ones after it; the exit status is 1 if any failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []remote.CommandResult
			err := a.withSession(func(sess *remote.Session) error {
				results = sess.ExecuteAll(args)
				return nil
			})
			if err != nil {
				return err
			}

			analyzer := recovery.NewAnalyzer()
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					out := a.stdout
					if !r.Success {
						out = a.stderr
					}
					for _, line := range r.Lines {
						if line != "" {
							fmt.Fprintln(out, line)
						}
					}
					if !r.Success {
						fmt.Fprintf(a.stderr, "%s: exit status %d\n", r.Command, r.ExitCode)
						for _, h := range analyzer.Analyze(strings.Join(r.Lines, "\n"), r.ExitCode) {
							fmt.Fprintf(a.stderr, "hint: %s. %s\n", h.Problem, h.Explanation)
						}
					}
				}
			}

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d commands failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
