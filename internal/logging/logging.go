// ABOUTME: Structured logging setup
// ABOUTME: slog to console and log file, with records teed to the UI log pane
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Key constants for structured log fields
const (
	KeyComponent = "component"
	KeyError     = "error"
)

// Line is one log record as shown in a front-end log pane
type Line struct {
	Time    time.Time  `json:"time"`
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
}

// String renders the line with a marker for warnings and errors
func (l Line) String() string {
	prefix := ""
	switch {
	case l.Level >= slog.LevelError:
		prefix = "*E* "
	case l.Level >= slog.LevelWarn:
		prefix = "*W* "
	}
	return l.Time.Format("15:04:05") + " " + prefix + l.Message
}

// Options configures the root logger
type Options struct {
	Level   string
	Format  string    // "json" or "text"
	Console io.Writer // nil for os.Stderr; io.Discard while a TUI owns the terminal
	File    string    // optional log file, truncated on start
	Sink    func(Line) // optional, must not block
}

// New builds the root logger. The returned closer releases the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	out := console
	closer := func() error { return nil }
	if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return nil, nil, fmt.Errorf("creating log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closer = f.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	if opts.Sink != nil {
		handler = &teeHandler{base: handler, sink: opts.Sink}
	}

	return slog.New(handler), closer, nil
}

// ParseLevel maps a config level name to a slog level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// teeHandler forwards each record to a line sink and then to the base handler
type teeHandler struct {
	base  slog.Handler
	sink  func(Line)
	attrs []slog.Attr
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)
	// component is already implied by the message in the pane
	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})

	h.sink(Line{Time: record.Time, Level: record.Level, Message: b.String()})

	return h.base.Handle(ctx, record)
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Key == KeyComponent {
		return
	}
	fmt.Fprintf(b, " %s=%v", a.Key, a.Value.Any())
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &teeHandler{base: h.base.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{base: h.base.WithGroup(name), sink: h.sink, attrs: h.attrs}
}
