package testsupport

import (
	"path/filepath"
	"testing"

	"logowatch/internal/config"
	"logowatch/internal/store"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"
	cfg.Twitch.ClientID = "test-client"
	cfg.Twitch.ClientSecret = "test-secret"
	cfg.Detection.LogoPath = filepath.Join(base, "logo.png")
	cfg.Monitor.Streamers = []string{"alpha", "bravo", "charlie"}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithStreamers overrides the monitored roster on the test config.
func WithStreamers(logins ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Monitor.Streamers = logins
	}
}

// WithThreshold overrides the detection threshold on the test config.
func WithThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Detection.Threshold = threshold
	}
}

// MustOpenStore opens the detection store for the test config and closes it
// when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
