// Package logging builds the slog logger used by the viewcache CLI.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options configures the CLI logger.
type Options struct {
	// Verbose switches the level from Info to Debug.
	Verbose bool
	// JSON selects the JSON handler instead of text.
	JSON bool
	// Writer receives log output; defaults to os.Stderr.
	Writer io.Writer
}

// New constructs a slog.Logger from opts.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
