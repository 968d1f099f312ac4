package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	streamerKey contextKey = "streamer"
)

// WithRunID annotates context with the monitoring pass identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the monitoring pass identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStreamer annotates context with the streamer login being analyzed.
func WithStreamer(ctx context.Context, login string) context.Context {
	if login == "" {
		return ctx
	}
	return context.WithValue(ctx, streamerKey, login)
}

// StreamerFromContext returns the streamer login if present.
func StreamerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(streamerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
