package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"logowatch/internal/store"
	"logowatch/internal/testsupport"
)

func record(streamer string, checkedAt time.Time, detected bool) store.Record {
	return store.Record{
		Streamer:    streamer,
		DisplayName: streamer,
		Title:       "title for " + streamer,
		Game:        "Just Chatting",
		Viewers:     42,
		CheckedAt:   checkedAt,
		Confidence:  0.42,
		Detected:    detected,
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Append(ctx, record("alpha", now, true), record("bravo", now, false)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, record("charlie", now.Add(time.Hour), true)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if all[i].Streamer != want {
			t.Fatalf("record %d: expected %q, got %q", i, want, all[i].Streamer)
		}
	}
	last := all[2]
	if !last.CheckedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected timestamp %v", last.CheckedAt)
	}
	if !last.Detected {
		t.Fatal("expected detected flag preserved")
	}
}

func TestAllSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := first.Append(ctx, record("alpha", now, true)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := first.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	all, err := second.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 || all[0].Streamer != "alpha" {
		t.Fatalf("expected persisted record, got %#v", all)
	}
	if second.RecoveredFrom() != "" {
		t.Fatal("healthy database must not be quarantined")
	}
}

func TestPruneBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)

	old := record("alpha", cutoff.Add(-time.Second), false)
	old.Screenshot = "/tmp/shots/alpha_old.jpg"
	boundary := record("bravo", cutoff, false)
	fresh := record("charlie", now, true)
	if err := s.Append(ctx, old, boundary, fresh); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	res, err := s.Prune(ctx, 30, now)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if res.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", res.Removed)
	}
	if len(res.Screenshots) != 1 || res.Screenshots[0] != old.Screenshot {
		t.Fatalf("expected stale screenshot listed, got %v", res.Screenshots)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected boundary record kept, got %d records", len(all))
	}
	if all[0].Streamer != "bravo" || all[1].Streamer != "charlie" {
		t.Fatalf("unexpected survivors: %q, %q", all[0].Streamer, all[1].Streamer)
	}
}

func TestPruneIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		age := time.Duration(i*20*24) * time.Hour
		if err := s.Append(ctx, record(fmt.Sprintf("streamer%d", i), now.Add(-age), false)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	first, err := s.Prune(ctx, 30, now)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if first.Removed != 3 {
		t.Fatalf("expected 3 removed, got %d", first.Removed)
	}

	second, err := s.Prune(ctx, 30, now)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if second.Removed != 0 {
		t.Fatalf("second prune must be a no-op, removed %d", second.Removed)
	}
}

func TestOpenQuarantinesCorruptDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.WriteFile(cfg.DatabasePath(), []byte("not a database"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	defer s.Close()

	if s.RecoveredFrom() == "" {
		t.Fatal("expected quarantined path to be reported")
	}
	if _, err := os.Stat(s.RecoveredFrom()); err != nil {
		t.Fatalf("quarantined file missing: %v", err)
	}

	ctx := context.Background()
	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty history after recovery, got %d", len(all))
	}
	if err := s.Append(ctx, record("alpha", time.Now().UTC(), false)); err != nil {
		t.Fatalf("Append after recovery failed: %v", err)
	}
}

func TestOpenDoesNotQuarantineOnEnvironmentalError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	// A directory at the database path is unopenable but not corrupt.
	if err := os.MkdirAll(cfg.DatabasePath(), 0o755); err != nil {
		t.Fatalf("mkdir at database path: %v", err)
	}

	if _, err := store.Open(cfg); err == nil {
		t.Fatal("expected open to fail")
	}

	info, err := os.Stat(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("database path must be left in place: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("database path was replaced")
	}
}

func TestStatsAndByStreamer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := s.Append(ctx,
		record("alpha", now.Add(-2*time.Hour), true),
		record("alpha", now.Add(-time.Hour), false),
		record("bravo", now, true),
	); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Detected != 2 || stats.Streamers != 2 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	if !stats.LastSeen.Equal(now) {
		t.Fatalf("unexpected last seen %v", stats.LastSeen)
	}

	byStreamer, err := s.ByStreamer(ctx)
	if err != nil {
		t.Fatalf("ByStreamer failed: %v", err)
	}
	if len(byStreamer) != 2 {
		t.Fatalf("expected 2 streamers, got %d", len(byStreamer))
	}
	if byStreamer[0].Streamer != "alpha" || byStreamer[0].Total != 2 || byStreamer[0].Detected != 1 {
		t.Fatalf("unexpected alpha stats %#v", byStreamer[0])
	}
}

func TestRecentNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, record(fmt.Sprintf("streamer%d", i), now.Add(time.Duration(i)*time.Minute), false)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Streamer != "streamer4" || recent[1].Streamer != "streamer3" {
		t.Fatalf("unexpected order: %q, %q", recent[0].Streamer, recent[1].Streamer)
	}
}
