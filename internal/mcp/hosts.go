package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/acolita/sshsync/internal/config"
)

func (s *Server) registerHostTools() {
	s.mcpServer.AddTool(remoteHostsTool(), s.handleRemoteHosts)
	s.mcpServer.AddTool(remoteHostAddTool(), s.handleRemoteHostAdd)
}

func remoteHostsTool() mcp.Tool {
	return mcp.NewTool("remote_hosts",
		mcp.WithDescription("List the hosts defined in the sshsync config"),
	)
}

func remoteHostAddTool() mcp.Tool {
	return mcp.NewTool("remote_host_add",
		mcp.WithDescription(`Add a host to the sshsync config and save it.

Secrets never pass through this tool: password hosts name an environment
variable (password_env) or rely on the OS keyring.

Requires a config file path (--config flag at startup).`),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Short name for the host (e.g., 'web1')"),
		),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description("SSH hostname or IP address"),
		),
		mcp.WithNumber("port",
			mcp.Description("SSH port (default: 22)"),
		),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("SSH username"),
		),
		mcp.WithString("auth_type",
			mcp.Description("Authentication type: 'agent' (default), 'key' or 'password'"),
		),
		mcp.WithString("key_path",
			mcp.Description("Path to SSH private key (key auth)"),
		),
		mcp.WithString("password_env",
			mcp.Description("Environment variable holding the password (password auth)"),
		),
	)
}

type hostSummary struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	AuthType string `json:"auth_type,omitempty"`
}

func (s *Server) handleRemoteHosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, _, _ := s.snapshot()

	hosts := make([]hostSummary, 0, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		port := h.Port
		if port == 0 {
			port = 22
		}
		hosts = append(hosts, hostSummary{Name: h.Name, Host: h.Host, Port: port, User: h.User, AuthType: h.Auth.Type})
	}
	return jsonResult(map[string]any{"hosts": hosts})
}

func (s *Server) handleRemoteHostAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.configPath == "" {
		return mcp.NewToolResultError(
			"No config file path set. Start the server with --config flag to enable config management.",
		), nil
	}

	authType := mcp.ParseString(req, "auth_type", "agent")
	h := config.HostConfig{
		Name: mcp.ParseString(req, "name", ""),
		Host: mcp.ParseString(req, "host", ""),
		Port: mcp.ParseInt(req, "port", 0),
		User: mcp.ParseString(req, "user", ""),
		Auth: config.AuthConfig{
			Type:        authType,
			Path:        mcp.ParseString(req, "key_path", ""),
			PasswordEnv: mcp.ParseString(req, "password_env", ""),
			UseKeyring:  authType == "password",
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Work on a copy so a rejected host leaves the live config untouched.
	next := *s.config
	next.Hosts = append([]config.HostConfig(nil), s.config.Hosts...)
	if err := next.AddHost(h); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add host: %v", err)), nil
	}
	if err := next.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid host: %v", err)), nil
	}
	if err := config.Save(&next, s.configPath); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save config: %v", err)), nil
	}
	s.config = &next

	slog.Info("host added",
		slog.String("name", h.Name),
		slog.String("host", h.Host),
		slog.String("config_path", s.configPath))

	return jsonResult(map[string]any{
		"status":      "saved",
		"name":        h.Name,
		"config_path": s.configPath,
	})
}
