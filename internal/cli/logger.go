package cli

import (
	"fmt"
	"io"
	"log/slog"
)

// newLogger builds the structured logger for a command run. Verbose mode
// lowers the level to debug; format picks the text or JSON handler.
func newLogger(w io.Writer, verbose bool, format string) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("invalid log format %q (valid: text, json)", format)
	}
	return slog.New(handler), nil
}
