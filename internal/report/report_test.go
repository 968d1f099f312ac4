package report_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logowatch/internal/report"
	"logowatch/internal/store"
	"logowatch/internal/testsupport"
)

func TestGenerateRendersHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := st.Append(ctx,
		store.Record{
			Streamer:    "alpha",
			DisplayName: "AlphaTV",
			Title:       "morning show",
			Game:        "Just Chatting",
			Viewers:     120,
			CheckedAt:   now.Add(-time.Hour),
			Confidence:  0.82,
			Detected:    true,
			Screenshot:  filepath.Join(cfg.ScreenshotsDir(), "alpha_20260830_110000_detected.jpg"),
		},
		store.Record{
			Streamer:   "bravo",
			Title:      "ranked grind",
			Game:       "Tetris",
			Viewers:    45,
			CheckedAt:  now,
			Confidence: 0.21,
			Detected:   false,
		},
	); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	gen, err := report.New(st, cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	path, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if filepath.Base(path) != "index.html" {
		t.Fatalf("unexpected output path %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	html := string(raw)

	for _, want := range []string{
		"AlphaTV",
		"bravo",
		"morning show",
		"ranked grind",
		"82.0%",
		"50.0%",
		"screenshots/alpha_20260830_110000_detected.jpg",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	// Newest record first in the history table.
	if strings.Index(html, "ranked grind") > strings.Index(html, "morning show") {
		t.Error("history not newest-first")
	}
}

func TestGenerateEmptyHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	gen, err := report.New(st, cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	path, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(raw), "No checks recorded yet") {
		t.Error("empty history placeholder missing")
	}
	if !strings.Contains(string(raw), "Total Checks") {
		t.Error("stat cards missing")
	}
}

func TestGenerateEscapesTitles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := st.Append(ctx, store.Record{
		Streamer:  "alpha",
		Title:     `<script>alert("hi")</script>`,
		CheckedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	gen, err := report.New(st, cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	path, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if strings.Contains(string(raw), "<script>alert") {
		t.Error("title not escaped")
	}
}
