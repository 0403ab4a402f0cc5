// Package logger provides a small slog-based logger for the request pipeline.
// All output goes to stderr so the response body on stdout stays clean.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifiers for prefixed logging
type Component string

const (
	ComponentCLI   Component = "CDPREQ"
	ComponentToken Component = "TOKEN"
	ComponentHTTP  Component = "HTTP"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// componentColors maps components to their display colors
var componentColors = map[Component]string{
	ComponentCLI:   colorBlue,
	ComponentToken: colorYellow,
	ComponentHTTP:  colorCyan,
}

// prefixHandler is a slog handler that prepends a component tag to each record.
type prefixHandler struct {
	slog.Handler
	out       io.Writer
	mu        sync.Mutex
	component Component
	level     slog.Level
	useColors bool
}

func newPrefixHandler(out io.Writer, component Component, level slog.Level, useColors bool) *prefixHandler {
	opts := &slog.HandlerOptions{Level: level}
	return &prefixHandler{
		Handler:   slog.NewTextHandler(out, opts),
		out:       out,
		component: component,
		level:     level,
		useColors: useColors,
	}
}

// Enabled reports whether records at the given level are emitted.
func (h *prefixHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle writes a record as "[COMPONENT] message key=value ...".
func (h *prefixHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	color := componentColors[h.component]
	reset := colorReset
	if !h.useColors {
		color = ""
		reset = ""
	}

	fmt.Fprintf(h.out, "%s[%s]%s %s", color, h.component, reset, r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.out)
	return nil
}

// WithAttrs returns a new handler with the given attributes
func (h *prefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prefixHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		out:       h.out,
		component: h.component,
		level:     h.level,
		useColors: h.useColors,
	}
}

// WithGroup returns a new handler with the given group
func (h *prefixHandler) WithGroup(name string) slog.Handler {
	return &prefixHandler{
		Handler:   h.Handler.WithGroup(name),
		out:       h.out,
		component: h.component,
		level:     h.level,
		useColors: h.useColors,
	}
}

// Logger wraps slog.Logger with a fixed component tag.
type Logger struct {
	*slog.Logger
	component Component
}

// New creates a component logger writing to stderr. When verbose is false only
// warnings and errors are emitted.
func New(component Component, verbose bool) *Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return NewWithWriter(component, os.Stderr, level, useColors())
}

// NewWithWriter creates a logger with a custom writer, used in tests.
func NewWithWriter(component Component, w io.Writer, level slog.Level, colors bool) *Logger {
	handler := newPrefixHandler(w, component, level, colors)
	return &Logger{
		Logger:    slog.New(handler),
		component: component,
	}
}

// Component returns a logger for a different pipeline component sharing the
// same handler configuration.
func (l *Logger) Component(component Component) *Logger {
	h, ok := l.Logger.Handler().(*prefixHandler)
	if !ok {
		return &Logger{Logger: l.Logger, component: component}
	}
	return &Logger{
		Logger:    slog.New(newPrefixHandler(h.out, component, h.level, h.useColors)),
		component: component,
	}
}

func useColors() bool {
	return os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
}
