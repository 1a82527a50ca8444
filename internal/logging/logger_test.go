package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestConsoleLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	return slog.New(newConsoleHandler(buf, levelVar))
}

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)
	logger = NewComponentLogger(logger, "pipecache")

	logger.Info("cached entity", String(FieldJob, "Testing"), Int(FieldVer, 2))

	line := buf.String()
	if !strings.Contains(line, "[pipecache]") {
		t.Fatalf("expected component tag in %q", line)
	}
	if !strings.Contains(line, "cached entity") {
		t.Fatalf("expected message in %q", line)
	}
	if !strings.Contains(line, "job=Testing") || !strings.Contains(line, "ver=2") {
		t.Fatalf("expected attrs in %q", line)
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelWarn)

	logger.Info("should be hidden")
	logger.Warn("should be shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("info record leaked through warn filter: %q", output)
	}
	if !strings.Contains(output, "should be shown") {
		t.Fatalf("warn record missing: %q", output)
	}
}

func TestConsoleHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)

	logger.WithGroup("scan").Info("done", String("dir", "renders"))

	if !strings.Contains(buf.String(), "scan.dir=renders") {
		t.Fatalf("expected grouped key, got %q", buf.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("nop logger should report disabled")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
