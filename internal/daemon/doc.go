// Package daemon runs scheduled detection passes and serves the dashboard.
//
// A file lock under the log directory enforces a single running instance.
// The scheduler executes one pass immediately on startup and one per
// configured interval; passes never overlap. The HTTP server exposes the
// rendered dashboard, screenshot artifacts, and a small JSON API.
package daemon
