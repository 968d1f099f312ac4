// Package store persists the detection history in SQLite: append-only
// records, retention-based pruning, and durable flushes between passes.
package store
