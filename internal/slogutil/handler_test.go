package slogutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRPGHandler(&buf, nil))

	logger.Info("graph saved", "entities", 42, "revision", 7)

	out := buf.String()
	if !strings.Contains(out, "[info] graph saved") {
		t.Errorf("missing level/message: %q", out)
	}
	if !strings.Contains(out, "entities=42") || !strings.Contains(out, "revision=7") {
		t.Errorf("missing attrs: %q", out)
	}
	if !strings.Contains(out, " | ") {
		t.Errorf("missing attr separator: %q", out)
	}
}

func TestHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRPGHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Debug("noise")
	logger.Info("still noise")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "noise") {
		t.Errorf("records below warn should be dropped: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRPGHandler(&buf, nil)).With("repo", "demo").WithGroup("lift")

	logger.Info("batch done", "count", 3)

	out := buf.String()
	if !strings.Contains(out, "repo=demo") {
		t.Errorf("pre-bound attr missing: %q", out)
	}
	if !strings.Contains(out, "lift.count=3") {
		t.Errorf("grouped attr missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != slog.LevelDebug {
		t.Error("debug")
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Error("default should be info")
	}
}
