package security

import (
	"fmt"
	"regexp"
)

// BlockedCommandError is returned by CommandFilter.Check for a command the
// filter refuses.
type BlockedCommandError struct {
	Command string
	Reason  string
}

func (e *BlockedCommandError) Error() string {
	return fmt.Sprintf("command %q refused: %s", e.Command, e.Reason)
}

// CommandFilter screens remote commands against blocklist and allowlist
// regular expressions. The blocklist wins; a non-empty allowlist admits
// only matching commands.
type CommandFilter struct {
	blocklist []*regexp.Regexp
	allowlist []*regexp.Regexp
}

// NewCommandFilter compiles the given patterns.
func NewCommandFilter(blocklist, allowlist []string) (*CommandFilter, error) {
	block, err := compileAll("blocklist", blocklist)
	if err != nil {
		return nil, err
	}
	allow, err := compileAll("allowlist", allowlist)
	if err != nil {
		return nil, err
	}
	return &CommandFilter{blocklist: block, allowlist: allow}, nil
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", kind, pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Check returns a *BlockedCommandError when command may not run. A nil
// filter admits everything.
func (cf *CommandFilter) Check(command string) error {
	if cf == nil {
		return nil
	}
	for _, re := range cf.blocklist {
		if re.MatchString(command) {
			return &BlockedCommandError{Command: command, Reason: "matches blocked pattern " + re.String()}
		}
	}
	if len(cf.allowlist) == 0 {
		return nil
	}
	for _, re := range cf.allowlist {
		if re.MatchString(command) {
			return nil
		}
	}
	return &BlockedCommandError{Command: command, Reason: "not in allowlist"}
}

// DefaultBlocklist returns patterns for commands that wreck a host.
func DefaultBlocklist() []string {
	return []string{
		`rm\s+-rf\s+/\s*$`,          // rm -rf /
		`rm\s+-rf\s+/\*`,            // rm -rf /*
		`mkfs\.`,                    // mkfs commands
		`dd\s+.*of=/dev/[sh]d`,      // dd to raw devices
		`:\s*\(\s*\)\s*\{\s*:\s*\|`, // fork bomb
		`>\s*/dev/[sh]d`,            // redirect to raw devices
	}
}
