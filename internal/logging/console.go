package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// consoleTimeFormat renders as 01-02-2006 15:04:05.
const consoleTimeFormat = "01-02-2006 15:04:05"

type consoleStyles struct {
	time    lipgloss.Style
	message lipgloss.Style
	attrKey lipgloss.Style
	levels  map[slog.Level]lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	level := func(hex string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true)
	}
	return consoleStyles{
		time:    r.NewStyle().Foreground(lipgloss.Color("#70acde")),
		message: r.NewStyle().Foreground(lipgloss.Color("#f5f5f5")),
		attrKey: r.NewStyle().Faint(true),
		levels: map[slog.Level]lipgloss.Style{
			slog.LevelDebug: level("#8598ea"),
			slog.LevelInfo:  level("#9cbfdd"),
			slog.LevelWarn:  level("#dcad5a"),
			slog.LevelError: level("#ae2c2c"),
		},
	}
}

func (s consoleStyles) level(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return s.levels[slog.LevelError]
	case l >= slog.LevelWarn:
		return s.levels[slog.LevelWarn]
	case l >= slog.LevelInfo:
		return s.levels[slog.LevelInfo]
	default:
		return s.levels[slog.LevelDebug]
	}
}

// ConsoleHandler writes one coloured line per record:
//
//	01-02-2006 15:04:05 | INFO: message key=value ...
//
// Colour is dropped automatically when w is not a terminal.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	styles consoleStyles
	attrs  []slog.Attr
	groups []string
}

// NewConsoleHandler returns a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	return &ConsoleHandler{
		mu:     &sync.Mutex{},
		w:      w,
		level:  level,
		styles: newConsoleStyles(lipgloss.NewRenderer(w)),
	}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(h.styles.time.Render(r.Time.Format(consoleTimeFormat)))
		buf.WriteString(" | ")
	}
	buf.WriteString(h.styles.level(r.Level).Render(r.Level.String()))
	buf.WriteString(": ")
	buf.WriteString(h.styles.message.Render(r.Message))

	for _, a := range h.attrs {
		h.writeAttr(&buf, "", a)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ConsoleHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, key, ga)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(h.styles.attrKey.Render(key + "="))
	buf.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(consoleTimeFormat)
	case slog.KindAny:
		s = fmt.Sprintf("%v", v.Any())
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	prefix := strings.Join(h.groups, ".")
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}
