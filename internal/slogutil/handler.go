// Package slogutil provides custom slog handlers and utilities for RPG logging.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// RPGHandler is a custom slog handler that formats logs as:
// TIMESTAMP [level] Message | key=value, key=value
type RPGHandler struct {
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
	mu     *sync.Mutex
}

// NewRPGHandler creates a new RPG log handler.
func NewRPGHandler(w io.Writer, opts *slog.HandlerOptions) *RPGHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &RPGHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RPGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
func (h *RPGHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(r.Time.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(strings.ToLower(r.Level.String()))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	var pairs []string
	for _, attr := range h.attrs {
		pairs = append(pairs, h.formatAttr(attr))
	}
	r.Attrs(func(attr slog.Attr) bool {
		pairs = append(pairs, h.formatAttr(attr))
		return true
	})
	if len(pairs) > 0 {
		buf.WriteString(" | ")
		buf.WriteString(strings.Join(pairs, ", "))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *RPGHandler) formatAttr(attr slog.Attr) string {
	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	return fmt.Sprintf("%s=%v", key, attr.Value.Any())
}

// WithAttrs returns a handler with the given attributes attached.
func (h *RPGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler with the given group appended.
func (h *RPGHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}
