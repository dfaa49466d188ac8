package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options controls how New builds the process logger.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is FormatText (human readable) or FormatJSON.
	Format string
	// Prefix is shown in front of text log lines.
	Prefix string
}

// ParseLevel converts a textual level to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds a slog.Logger writing to w.
//
// Text output is rendered by charmbracelet/log, which implements
// slog.Handler; JSON output uses the standard library handler so log
// shippers get one object per line.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		cl := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          opts.Prefix,
			Level:           charmlog.Level(level),
		})
		return slog.New(cl), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}
