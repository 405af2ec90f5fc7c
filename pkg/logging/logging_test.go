package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		want      slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{3, slog.LevelDebug},
		{10, slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := LevelForVerbosity(tt.verbosity); got != tt.want {
			t.Errorf("LevelForVerbosity(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestSetup_FiltersByVerbosity(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := Setup(&buf, 0)

	logger.Info("hidden info")
	logger.Warn("visible warning", "image", "fedora:40")

	out := buf.String()
	if strings.Contains(out, "hidden info") {
		t.Errorf("info record should be filtered at verbosity 0:\n%s", out)
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "fedora:40") {
		t.Errorf("expected warning with attrs in output:\n%s", out)
	}
}

func TestSetup_SetsDefaultAndDebug(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(&buf, 2)

	slog.Debug("running command", "cmd", "mercator -config x /tmp/y")

	if !strings.Contains(buf.String(), "running command") {
		t.Errorf("expected debug record from default logger:\n%s", buf.String())
	}
}

func TestContextAttrsAreLogged(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := Setup(&buf, 1)

	ctx := ContextWithAttrs(context.Background(), slog.String("run_id", "abc-123"))
	ctx = ContextWithAttrs(ctx)
	logger.InfoContext(ctx, "analysis started")
	logger.Info("no context attrs")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "abc-123") {
		t.Errorf("expected run_id in first line: %s", lines[0])
	}
	if strings.Contains(lines[1], "abc-123") {
		t.Errorf("unexpected run_id in second line: %s", lines[1])
	}
}
