package remote

import (
	"log/slog"
	"strings"
)

// CommandResult is the outcome of one remote command. Success is true
// exactly when the exit status was 0; Lines holds stdout on success and
// stderr otherwise.
type CommandResult struct {
	Command  string   `json:"command"`
	Lines    []string `json:"lines"`
	Success  bool     `json:"success"`
	ExitCode int      `json:"exit_code"`
}

// Execute runs command in a fresh remote shell. A non-zero exit is
// reported through the result, not the error; the error is reserved for
// an unconnected session or a transport failure.
func (s *Session) Execute(command string) (CommandResult, error) {
	client, _, err := s.handles()
	if err != nil {
		return CommandResult{Command: command}, err
	}

	out, err := client.Exec(command)
	if err != nil {
		slog.Error("command failed",
			slog.String("host", s.params.Host),
			slog.String("command", command),
			slog.String("error", err.Error()))
		return CommandResult{Command: command}, err
	}

	result := CommandResult{
		Command:  command,
		Success:  out.ExitCode == 0,
		ExitCode: out.ExitCode,
	}
	if result.Success {
		result.Lines = decodeLines(out.Stdout)
		slog.Info("command",
			slog.String("host", s.params.Host),
			slog.String("command", command),
			slog.Any("output", result.Lines))
	} else {
		result.Lines = decodeLines(out.Stderr)
		slog.Error("command",
			slog.String("host", s.params.Host),
			slog.String("command", command),
			slog.Int("exit_code", out.ExitCode),
			slog.Any("output", result.Lines))
	}
	return result, nil
}

// ExecuteAll runs each command in order and never stops early. Transport
// failures become unsuccessful results carrying the error text.
func (s *Session) ExecuteAll(commands []string) []CommandResult {
	results := make([]CommandResult, 0, len(commands))
	for _, command := range commands {
		result, err := s.Execute(command)
		if err != nil {
			result = CommandResult{Command: command, Lines: []string{err.Error()}, ExitCode: -1}
		}
		results = append(results, result)
	}
	return results
}

// decodeLines drops invalid UTF-8, trims surrounding whitespace and splits
// on newlines. Empty output yields a single empty line.
func decodeLines(b []byte) []string {
	text := strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
	return strings.Split(text, "\n")
}
