package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizingHandler_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSanitizingHandler(slog.NewJSONHandler(&buf, nil), true))

	logger.Info("connect",
		slog.String("host", "web1"),
		slog.String("password", "hunter2"),
		slog.String("KeyPassphrase", "phrase"),
		slog.Group("auth_config", slog.String("token", "abc"), slog.String("user", "deploy")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "decode log line")

	assert.Equal(t, "web1", entry["host"])
	assert.Equal(t, "[REDACTED]", entry["password"])
	assert.Equal(t, "[REDACTED]", entry["KeyPassphrase"])
	group, ok := entry["auth_config"].(map[string]any)
	require.True(t, ok, "auth_config = %#v", entry["auth_config"])
	assert.Equal(t, "[REDACTED]", group["token"])
	assert.Equal(t, "deploy", group["user"])
	assert.NotContains(t, buf.String(), "hunter2", "secret leaked into output")
}

func TestSanitizingHandler_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSanitizingHandler(slog.NewJSONHandler(&buf, nil), false))

	logger.Info("connect", slog.String("password", "visible"))

	assert.Contains(t, buf.String(), "visible", "sanitize=false should pass attrs through")
}

func TestSanitizingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSanitizingHandler(slog.NewJSONHandler(&buf, nil), true)).
		With(slog.String("secret", "s"), slog.String("session", "a1")).
		WithGroup("req")

	logger.Info("x", slog.String("password", "p"))

	out := buf.String()
	assert.NotContains(t, out, `"s"`)
	assert.NotContains(t, out, `"p"`)
	assert.Contains(t, out, `"session":"a1"`)
	assert.Contains(t, out, `"req":{`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

var consoleLine = regexp.MustCompile(`^\d{2}-\d{2}-\d{4} \d{2}:\d{2}:\d{2} \| [A-Z]+: `)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, slog.LevelInfo)

	r := slog.NewRecord(time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC), slog.LevelInfo, "sent", 0)
	r.AddAttrs(
		slog.String("local", "/src/a.txt"),
		slog.Int64("bytes", 42),
		slog.String("note", "two words"),
	)
	require.NoError(t, h.Handle(context.Background(), r))

	want := `03-09-2026 14:05:07 | INFO: sent local=/src/a.txt bytes=42 note="two words"` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestConsoleHandler_LevelFilterAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelWarn))

	logger.Info("hidden")
	logger.With(slog.String("host", "web1")).WithGroup("cmd").Error("failed", slog.Int("exit_code", 2))

	out := buf.String()
	assert.NotContains(t, out, "hidden", "info record should be filtered")
	assert.Regexp(t, consoleLine, out)
	assert.Contains(t, out, "ERROR: failed host=web1 cmd.exit_code=2")
}

func TestNewHandler_Formats(t *testing.T) {
	var jsonBuf, consoleBuf bytes.Buffer

	slog.New(NewHandler(&jsonBuf, "debug", "json", true)).Debug("hello", slog.String("password", "x"))
	slog.New(NewHandler(&consoleBuf, "info", "console", true)).Info("hello", slog.String("password", "x"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &entry), "json output %q", jsonBuf.String())
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "[REDACTED]", entry["password"])

	assert.Contains(t, consoleBuf.String(), "INFO: hello password=[REDACTED]")
}
