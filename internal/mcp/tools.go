package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/acolita/sshsync/internal/config"
	"github.com/acolita/sshsync/internal/recovery"
	"github.com/acolita/sshsync/internal/remote"
	"github.com/acolita/sshsync/internal/treesync"
)

const descHost = "Host name from the sshsync config"

// execResult is a CommandResult plus recovery hints when it failed.
type execResult struct {
	remote.CommandResult
	Hints []recovery.Hint `json:"hints,omitempty"`
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(remoteExecTool(), s.handleRemoteExec)
	s.mcpServer.AddTool(remoteGetTool(), s.handleRemoteGet)
	s.mcpServer.AddTool(remotePutTool(), s.handleRemotePut)
	s.mcpServer.AddTool(remoteWriteTool(), s.handleRemoteWrite)
	s.registerHostTools()
}

// Tool definitions

func remoteExecTool() mcp.Tool {
	return mcp.NewTool("remote_exec",
		mcp.WithDescription(`Run shell commands on a configured host, in order, each in a fresh session.

A failing command does not stop the ones after it. Each result carries the
command, its output lines (stdout on success, stderr otherwise), success and
exit code; failed commands also carry recovery hints.`),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description(descHost),
		),
		mcp.WithArray("commands",
			mcp.Required(),
			mcp.Description("Commands to run"),
			mcp.WithStringItems(),
		),
	)
}

func remoteGetTool() mcp.Tool {
	return mcp.NewTool("remote_get",
		mcp.WithDescription("Download a remote file or directory tree to a local path"),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description(descHost),
		),
		mcp.WithString("remote_path",
			mcp.Required(),
			mcp.Description("Remote source path"),
		),
		mcp.WithString("local_path",
			mcp.Required(),
			mcp.Description("Local destination path"),
		),
	)
}

func remotePutTool() mcp.Tool {
	return mcp.NewTool("remote_put",
		mcp.WithDescription("Upload a local file or directory tree to a remote path, creating missing remote directories"),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description(descHost),
		),
		mcp.WithString("local_path",
			mcp.Required(),
			mcp.Description("Local source path"),
		),
		mcp.WithString("remote_path",
			mcp.Required(),
			mcp.Description("Remote destination path"),
		),
	)
}

func remoteWriteTool() mcp.Tool {
	return mcp.NewTool("remote_write",
		mcp.WithDescription("Write text to a remote file and make it executable (mode 0755)"),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description(descHost),
		),
		mcp.WithString("remote_path",
			mcp.Required(),
			mcp.Description("Remote file path"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("File contents"),
		),
	)
}

// Tool handlers

func (s *Server) handleRemoteExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host := mcp.ParseString(req, "host", "")
	commands, err := stringSlice(req, "commands")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if host == "" {
		return mcp.NewToolResultError("host is required"), nil
	}
	if len(commands) == 0 {
		return mcp.NewToolResultError("commands is required"), nil
	}

	_, filter, _ := s.snapshot()
	for _, c := range commands {
		if err := filter.Check(c); err != nil {
			slog.Warn("command blocked", slog.String("host", host), slog.String("command", c))
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var results []remote.CommandResult
	err = s.withSession(host, func(sess *remote.Session, _ *config.Config) error {
		results = sess.ExecuteAll(commands)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]execResult, len(results))
	for i, r := range results {
		out[i] = execResult{CommandResult: r}
		if !r.Success {
			out[i].Hints = s.analyzer.Analyze(strings.Join(r.Lines, "\n"), r.ExitCode)
		}
	}

	return jsonResult(map[string]any{
		"host":    host,
		"results": out,
	})
}

func (s *Server) handleRemoteGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transfer(req, "remote_path", "local_path", func(e *treesync.Engine, src, dst string) (*treesync.Report, error) {
		return e.Fetch(src, dst)
	})
}

func (s *Server) handleRemotePut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transfer(req, "local_path", "remote_path", func(e *treesync.Engine, src, dst string) (*treesync.Report, error) {
		return e.Push(src, dst)
	})
}

type transferFunc func(e *treesync.Engine, src, dst string) (*treesync.Report, error)

func (s *Server) transfer(req mcp.CallToolRequest, srcKey, dstKey string, run transferFunc) (*mcp.CallToolResult, error) {
	host := mcp.ParseString(req, "host", "")
	src := mcp.ParseString(req, srcKey, "")
	dst := mcp.ParseString(req, dstKey, "")
	if msg := missing(map[string]string{"host": host, srcKey: src, dstKey: dst}, "host", srcKey, dstKey); msg != "" {
		return mcp.NewToolResultError(msg), nil
	}

	var report *treesync.Report
	err := s.withSession(host, func(sess *remote.Session, cfg *config.Config) error {
		opts, err := engineOptions(cfg)
		if err != nil {
			return err
		}
		engine, err := sess.Engine(opts)
		if err != nil {
			return err
		}
		report, err = run(engine, src, dst)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"host":   host,
		"files":  report.Files(),
		"bytes":  report.Bytes(),
		"report": report,
	})
}

func (s *Server) handleRemoteWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host := mcp.ParseString(req, "host", "")
	remotePath := mcp.ParseString(req, "remote_path", "")
	content := mcp.ParseString(req, "content", "")
	if msg := missing(map[string]string{"host": host, "remote_path": remotePath}, "host", "remote_path"); msg != "" {
		return mcp.NewToolResultError(msg), nil
	}

	err := s.withSession(host, func(sess *remote.Session, cfg *config.Config) error {
		opts, err := engineOptions(cfg)
		if err != nil {
			return err
		}
		engine, err := sess.Engine(opts)
		if err != nil {
			return err
		}
		return engine.WriteRemoteFile(content, remotePath)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"host":        host,
		"remote_path": remotePath,
		"bytes":       len(content),
		"mode":        fmt.Sprintf("%#o", uint32(treesync.ScriptMode)),
	})
}

// missing returns "<key> is required" for the first empty value in keys.
func missing(values map[string]string, keys ...string) string {
	for _, k := range keys {
		if values[k] == "" {
			return k + " is required"
		}
	}
	return ""
}

// stringSlice reads an array-of-strings argument.
func stringSlice(req mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
