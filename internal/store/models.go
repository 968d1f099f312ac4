package store

import "time"

// Record is one persisted detection check. Records are immutable once
// appended; only retention pruning removes them.
type Record struct {
	ID          int64
	Streamer    string
	DisplayName string
	Title       string
	Game        string
	Viewers     int
	CheckedAt   time.Time
	Confidence  float64
	Detected    bool
	// Screenshot is the annotated artifact path, empty when capture was
	// disabled or failed.
	Screenshot string
	StartedAt  *time.Time
}

// PruneResult reports the outcome of a retention sweep.
type PruneResult struct {
	Removed int64
	// Screenshots lists artifact paths referenced only by removed records.
	Screenshots []string
}

// Stats aggregates history counts for status output.
type Stats struct {
	Total     int
	Detected  int
	Streamers int
	FirstSeen time.Time
	LastSeen  time.Time
}

// StreamerStats aggregates per-streamer history for the report.
type StreamerStats struct {
	Streamer      string
	DisplayName   string
	Total         int
	Detected      int
	AvgConfidence float64
	LastChecked   time.Time
}
