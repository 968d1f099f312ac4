package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar))

	WithComponent(logger, "monitor").Info("pass complete",
		Int("live", 2),
		Int64("removed", 3),
		Bool("detected", true),
		Duration("elapsed", 1500*time.Millisecond),
		String("streamer", "some streamer"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO monitor: pass complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	for _, attr := range []string{"live=2", "removed=3", "detected=true", "elapsed=1.5s"} {
		if !strings.Contains(line, attr) {
			t.Fatalf("missing %q in line: %q", attr, line)
		}
	}
	if !strings.Contains(line, `streamer="some streamer"`) {
		t.Fatalf("expected quoted value in line: %q", line)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "logowatch-old.log")
	newPath := filepath.Join(dir, "logowatch-new.log")
	for _, path := range []string{oldPath, newPath} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "logowatch-*.log", Exclude: []string{newPath}})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatal("expected stale log removed")
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatalf("expected fresh log kept: %v", err)
	}
}
