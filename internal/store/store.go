package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"logowatch/internal/config"
	"logowatch/internal/services"
)

// timeFormat is RFC3339 UTC with fixed nanosecond width so stored strings
// sort lexicographically and retention cutoffs compare correctly in SQL.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store owns the detection history backed by SQLite. All mutating access is
// serialized: a flush checkpoint must never race a concurrent append.
type Store struct {
	mu            sync.Mutex
	db            *sql.DB
	path          string
	recoveredFrom string
}

// Open initializes or connects to the detection database. An unreadable or
// corrupt database file is quarantined and replaced with a fresh one rather
// than failing startup; RecoveredFrom reports the quarantined path so the
// caller can surface the warning.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "open", "ensure directories", err)
	}

	dbPath := cfg.DatabasePath()
	store := &Store{path: dbPath}

	db, err := openDatabase(dbPath)
	if err == nil {
		store.db = db
		return store, nil
	}
	if !isCorrupt(err) {
		// Permission and I/O failures must not throw away a healthy
		// history file.
		return nil, services.Wrap(services.ErrPersistence, "store", "open", "open database", err)
	}

	quarantined, qErr := quarantine(dbPath)
	if qErr != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "open", "quarantine corrupt database", errors.Join(err, qErr))
	}

	db, retryErr := openDatabase(dbPath)
	if retryErr != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "open", "reinitialize database", errors.Join(err, retryErr))
	}
	store.db = db
	store.recoveredFrom = quarantined
	return store, nil
}

func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// isCorrupt reports whether err indicates a damaged database file rather
// than an environmental failure such as missing permissions.
func isCorrupt(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_CORRUPT") ||
		strings.Contains(msg, "SQLITE_NOTADB") ||
		strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}

// RecoveredFrom returns the path the previous corrupt database was moved to,
// or empty when startup used the existing history.
func (s *Store) RecoveredFrom() string {
	if s == nil {
		return ""
	}
	return s.recoveredFrom
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append persists a batch of records in argument order as one transaction.
func (s *Store) Append(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "append", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO detections (
        streamer, display_name, title, game, viewers,
        checked_at, confidence, detected, screenshot, started_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "store", "append", "prepare insert", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx,
			record.Streamer,
			nullableString(record.DisplayName),
			nullableString(record.Title),
			nullableString(record.Game),
			record.Viewers,
			record.CheckedAt.UTC().Format(timeFormat),
			record.Confidence,
			boolToInt(record.Detected),
			nullableString(record.Screenshot),
			nullableTime(record.StartedAt),
		); err != nil {
			return services.Wrap(services.ErrPersistence, "store", "append", "insert record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "append", "commit", err)
	}
	return nil
}

// All returns the full history oldest-first, including rows persisted by
// prior processes.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM detections ORDER BY id`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "all", "query", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Since returns records checked at or after the provided time, oldest-first.
func (s *Store) Since(ctx context.Context, t time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM detections WHERE checked_at >= ? ORDER BY id`,
		t.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "since", "query", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Recent returns the newest records, newest-first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM detections ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "recent", "query", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Prune removes every record strictly older than now minus the retention
// period. Records exactly at the cutoff survive. Idempotent: a second run
// with the same now removes nothing.
func (s *Store) Prune(ctx context.Context, retentionDays int, now time.Time) (PruneResult, error) {
	cutoff := now.UTC().AddDate(0, 0, -retentionDays).Format(timeFormat)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT screenshot FROM detections
         WHERE checked_at < ? AND screenshot IS NOT NULL
           AND screenshot NOT IN (SELECT screenshot FROM detections WHERE checked_at >= ? AND screenshot IS NOT NULL)`,
		cutoff, cutoff,
	)
	if err != nil {
		return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "collect screenshots", err)
	}
	var screenshots []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "scan screenshot", err)
		}
		screenshots = append(screenshots, path)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "iterate screenshots", err)
	}
	rows.Close()

	res, err := tx.ExecContext(ctx, `DELETE FROM detections WHERE checked_at < ?`, cutoff)
	if err != nil {
		return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "delete", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "rows affected", err)
	}

	if err := tx.Commit(); err != nil {
		return PruneResult{}, services.Wrap(services.ErrPersistence, "store", "prune", "commit", err)
	}
	return PruneResult{Removed: removed, Screenshots: screenshots}, nil
}

// Flush checkpoints the WAL so a restart resumes from the last completed
// pass. Appends and prunes are already transactional; this bounds how much
// state lives only in the write-ahead log.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return services.Wrap(services.ErrPersistence, "store", "flush", "wal checkpoint", err)
	}
	return nil
}

const recordColumns = "id, streamer, display_name, title, game, viewers, checked_at, confidence, detected, screenshot, started_at"

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "scan", "record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "scan", "iterate", err)
	}
	return records, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		id          int64
		streamer    string
		displayName sql.NullString
		title       sql.NullString
		game        sql.NullString
		viewers     int
		checkedRaw  string
		confidence  float64
		detected    int
		screenshot  sql.NullString
		startedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&streamer,
		&displayName,
		&title,
		&game,
		&viewers,
		&checkedRaw,
		&confidence,
		&detected,
		&screenshot,
		&startedRaw,
	); err != nil {
		return Record{}, err
	}

	record := Record{
		ID:          id,
		Streamer:    streamer,
		DisplayName: displayName.String,
		Title:       title.String,
		Game:        game.String,
		Viewers:     viewers,
		Confidence:  confidence,
		Detected:    detected != 0,
		Screenshot:  screenshot.String,
	}
	if checked, err := parseTimeString(checkedRaw); err == nil {
		record.CheckedAt = checked
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			record.StartedAt = &started
		}
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(timeFormat)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
