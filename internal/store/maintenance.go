package store

import (
	"context"
	"database/sql"

	"logowatch/internal/services"
)

// Stats returns aggregate history counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats    Stats
		firstRaw sql.NullString
		lastRaw  sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(1),
        COALESCE(SUM(detected), 0),
        COUNT(DISTINCT streamer),
        MIN(checked_at),
        MAX(checked_at)
    FROM detections`)
	if err := row.Scan(&stats.Total, &stats.Detected, &stats.Streamers, &firstRaw, &lastRaw); err != nil {
		return Stats{}, services.Wrap(services.ErrPersistence, "store", "stats", "scan", err)
	}
	if firstRaw.Valid {
		if t, err := parseTimeString(firstRaw.String); err == nil {
			stats.FirstSeen = t
		}
	}
	if lastRaw.Valid {
		if t, err := parseTimeString(lastRaw.String); err == nil {
			stats.LastSeen = t
		}
	}
	return stats, nil
}

// ByStreamer returns per-streamer aggregates ordered by login.
func (s *Store) ByStreamer(ctx context.Context) ([]StreamerStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
        streamer,
        COALESCE(MAX(display_name), ''),
        COUNT(1),
        COALESCE(SUM(detected), 0),
        COALESCE(AVG(confidence), 0),
        MAX(checked_at)
    FROM detections GROUP BY streamer ORDER BY streamer`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "by streamer", "query", err)
	}
	defer rows.Close()

	var all []StreamerStats
	for rows.Next() {
		var (
			entry   StreamerStats
			lastRaw sql.NullString
		)
		if err := rows.Scan(&entry.Streamer, &entry.DisplayName, &entry.Total, &entry.Detected, &entry.AvgConfidence, &lastRaw); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "by streamer", "scan", err)
		}
		if lastRaw.Valid {
			if t, err := parseTimeString(lastRaw.String); err == nil {
				entry.LastChecked = t
			}
		}
		all = append(all, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "store", "by streamer", "iterate", err)
	}
	return all, nil
}
