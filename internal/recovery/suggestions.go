// Package recovery suggests follow-up commands for remote commands that
// failed, based on their output and exit status.
package recovery

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// Hint is one suggested way out of a failure.
type Hint struct {
	Problem     string   `json:"problem"`
	Category    string   `json:"category"`
	Commands    []string `json:"commands,omitempty"`
	Explanation string   `json:"explanation"`
	Confidence  float64  `json:"confidence"`
	// Risky hints change the remote host and deserve a human look first.
	Risky bool `json:"risky,omitempty"`
}

// Analyzer matches failure output against a fixed rule set.
type Analyzer struct {
	rules []rule
}

type rule struct {
	pattern *regexp.Regexp
	// exitCode, when non-zero, also triggers the rule without a match.
	exitCode int
	hint     func(matches []string) Hint
}

// NewAnalyzer returns an Analyzer with the built-in rules.
func NewAnalyzer() *Analyzer {
	return &Analyzer{rules: defaultRules()}
}

// Analyze returns hints for a command that exited with exitCode and
// printed output, most confident first. Successful commands get none.
func (a *Analyzer) Analyze(output string, exitCode int) []Hint {
	if exitCode == 0 {
		return nil
	}

	var hints []Hint
	for _, r := range a.rules {
		if m := r.pattern.FindStringSubmatch(output); m != nil {
			hints = append(hints, r.hint(m))
		} else if r.exitCode != 0 && r.exitCode == exitCode {
			hints = append(hints, r.hint(nil))
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return hints[i].Confidence > hints[j].Confidence
	})
	return hints
}

func group(m []string, i int) string {
	if i < len(m) {
		return strings.TrimSpace(m[i])
	}
	return ""
}

func defaultRules() []rule {
	return []rule{
		{
			pattern: regexp.MustCompile(`(?i)permission denied`),
			hint: func(_ []string) Hint {
				return Hint{
					Problem:     "Permission denied",
					Category:    "permission",
					Commands:    []string{"id", "ls -ld <path>"},
					Explanation: "The remote user lacks access to the path. Check ownership or connect as a user that has it.",
					Confidence:  0.8,
				}
			},
		},
		{
			pattern:  regexp.MustCompile(`(?i)(\S+):\s*(?:command )?not found`),
			exitCode: 127,
			hint: func(m []string) Hint {
				name := strings.TrimSuffix(group(m, 1), ":")
				if i := strings.LastIndex(name, ":"); i >= 0 {
					name = strings.TrimSpace(name[i+1:])
				}
				h := Hint{
					Problem:     "Command not found",
					Category:    "package",
					Commands:    []string{"echo $PATH"},
					Explanation: "The command is not installed on the remote host or not on the non-interactive PATH.",
					Confidence:  0.7,
				}
				if name != "" {
					h.Problem += ": " + name
					h.Commands = append([]string{"command -v " + name}, h.Commands...)
				}
				return h
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)(?:cannot access |can't cd to |cd: )?'?([^\s':]*)'?:? No such file or directory`),
			hint: func(m []string) Hint {
				p := group(m, 1)
				h := Hint{
					Problem:     "No such file or directory",
					Category:    "filesystem",
					Commands:    []string{"pwd", "ls -la"},
					Explanation: "Commands run from the login directory; use absolute paths or create the directory first.",
					Confidence:  0.6,
				}
				if p != "" {
					h.Problem += ": " + p
					h.Commands = append(h.Commands, "ls -la "+path.Dir(p))
				}
				return h
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)no space left on device`),
			hint: func(_ []string) Hint {
				return Hint{
					Problem:     "Disk full",
					Category:    "disk",
					Commands:    []string{"df -h", "du -sh * | sort -h | tail -10"},
					Explanation: "The remote filesystem is full. Free space before retrying the transfer or command.",
					Confidence:  0.9,
				}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)read-only file system`),
			hint: func(_ []string) Hint {
				return Hint{
					Problem:     "Read-only file system",
					Category:    "disk",
					Commands:    []string{"mount | grep ' ro,'"},
					Explanation: "The target is mounted read-only. Write somewhere else or remount it read-write.",
					Confidence:  0.85,
					Risky:       true,
				}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)connection refused`),
			hint: func(_ []string) Hint {
				return Hint{
					Problem:     "Connection refused",
					Category:    "network",
					Commands:    []string{"ss -tlnp"},
					Explanation: "Nothing is listening on the address the command tried to reach from the remote host.",
					Confidence:  0.7,
				}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)Could not get lock|Unable to acquire the dpkg frontend lock`),
			hint: func(_ []string) Hint {
				return Hint{
					Problem:     "Package manager is locked",
					Category:    "package",
					Commands:    []string{"ps aux | grep -E 'apt|dpkg'", "sudo dpkg --configure -a"},
					Explanation: "Another package manager run holds the lock. Wait for it, or repair an interrupted run.",
					Confidence:  0.7,
					Risky:       true,
				}
			},
		},
	}
}
