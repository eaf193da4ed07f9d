package debug

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the rotating run log
type LogOptions struct {
	// Filename is the log file path. Empty disables file logging.
	Filename   string
	Level      string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Verbose    bool
	// Fallback receives the log when Filename is empty; nil discards it
	Fallback io.Writer
}

// ParseLevel maps a level name (or numeric slog level) to a slog.Level
func ParseLevel(level string, defaultLevel slog.Level) slog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return defaultLevel
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}
	return defaultLevel
}

// NewLogger builds a text slog logger writing to a lumberjack-rotated file.
// The returned closer must be closed on shutdown. With no filename the logger
// writes to Fallback.
func NewLogger(opts LogOptions) (*slog.Logger, io.Closer) {
	level := ParseLevel(opts.Level, slog.LevelInfo)
	if opts.Verbose {
		level = slog.LevelDebug
	}

	if strings.TrimSpace(opts.Filename) == "" {
		w := opts.Fallback
		if w == nil {
			w = io.Discard
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), io.NopCloser(nil)
	}

	writer := &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}
	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		AddSource: level <= slog.LevelDebug,
		Level:     level,
	})
	return slog.New(handler), writer
}

// ConfigureLogger installs the run log as the slog default
func ConfigureLogger(opts LogOptions) io.Closer {
	logger, closer := NewLogger(opts)
	slog.SetDefault(logger)
	return closer
}
