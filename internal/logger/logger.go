// Package logger builds the slog loggers used across the CLI.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	debug  bool
	json   bool
	writer io.Writer
}

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.debug = debug
	}
}

// WithJSON switches to slog's JSON handler.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter overrides the output writer. Defaults to os.Stderr so streamed
// completions on stdout stay clean.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

func New(opts ...Option) *slog.Logger {
	c := &config{writer: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}

	if c.json {
		level := slog.LevelInfo
		if c.debug {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: level}))
	}

	level := charmlog.InfoLevel
	if c.debug {
		level = charmlog.DebugLevel
	}

	return slog.New(charmlog.NewWithOptions(c.writer, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
	}))
}

// Nop returns a logger that drops everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
