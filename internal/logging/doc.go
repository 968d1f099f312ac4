// Package logging configures slog output for the CLI and daemon, including
// the console pretty handler, JSON output, and log file retention.
package logging
