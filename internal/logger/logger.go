// Package logger configures the process-wide slog logger and hands out
// loggers tagged with the component or language database they serve.
package logger

import (
	"io"
	"log/slog"
)

// Setup installs and returns the default logger. Logs go to w so that
// command output on stdout stays machine readable. format is "json" or
// "text"; anything else falls back to text.
func Setup(w io.Writer, level string, format string) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// WithComponent returns the default logger with a "component" attribute,
// e.g. "engine" or "cli".
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// ForLanguage returns the logger of one language database's component.
func ForLanguage(lang, component string) *slog.Logger {
	return slog.Default().With("language", lang, "component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
