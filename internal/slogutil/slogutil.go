package slogutil

import (
	"io"
	"log/slog"
	"os"

	"rpg/internal/paths"
)

// NewDiscardLogger returns a logger that drops all records.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewRPGHandler(io.Discard, nil))
}

// NewStderrLogger returns a logger writing to stderr at the given level.
// The MCP server must never log to stdout (it carries the JSON-RPC stream).
func NewStderrLogger(level slog.Level) *slog.Logger {
	return slog.New(NewRPGHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewFileLogger returns a logger appending to .rpg/logs/<subsystem>.log.
// Falls back to a discard logger when the log directory cannot be created;
// logging must never break the operation it observes.
func NewFileLogger(repoRoot, subsystem string, level slog.Level) (*slog.Logger, io.Closer) {
	if repoRoot == "" {
		return NewDiscardLogger(), nopCloser{}
	}
	if _, err := paths.EnsureLogsDir(repoRoot); err != nil {
		return NewDiscardLogger(), nopCloser{}
	}
	f, err := os.OpenFile(paths.LogFile(repoRoot, subsystem), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return NewDiscardLogger(), nopCloser{}
	}
	return slog.New(NewRPGHandler(f, &slog.HandlerOptions{Level: level})), f
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
