package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"logowatch/internal/config"
	"logowatch/internal/detect"
	"logowatch/internal/logging"
	"logowatch/internal/monitor"
	"logowatch/internal/store"
	"logowatch/internal/twitch"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openStore opens the detection database and reports a recovery warning when
// the previous file was quarantined.
func (c *commandContext) openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open detection store: %w", err)
	}
	if quarantined := st.RecoveredFrom(); quarantined != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: corrupt database moved to %s; starting with empty history\n", quarantined)
	}
	return st, nil
}

// openStoreWithLogger opens the store for the daemon, logging the recovery
// warning instead of printing it.
func (c *commandContext) openStoreWithLogger(logger *slog.Logger) (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open detection store: %w", err)
	}
	if quarantined := st.RecoveredFrom(); quarantined != "" {
		logger.Warn("corrupt database quarantined; starting with empty history", logging.String("moved_to", quarantined))
	}
	return st, nil
}

// buildMonitor assembles the platform client, matcher, and monitor for one
// CLI-invoked pass.
func (c *commandContext) buildMonitor(st *store.Store, logger *slog.Logger) (*monitor.Monitor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	client, err := twitch.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	reference, err := detect.LoadReference(cfg.Detection.LogoPath)
	if err != nil {
		return nil, err
	}
	matcher, err := detect.NewMatcher(reference, detect.Options{
		Threshold:  cfg.Detection.Threshold,
		MultiScale: cfg.Detection.MultiScale,
		ScaleMin:   cfg.Detection.ScaleMin,
		ScaleMax:   cfg.Detection.ScaleMax,
		ScaleSteps: cfg.Detection.ScaleSteps,
	})
	if err != nil {
		return nil, err
	}

	return monitor.New(client, matcher, st, cfg, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
