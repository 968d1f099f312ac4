package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTwitch(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTwitch() error {
	if c.Twitch.ClientID == "" || c.Twitch.ClientSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/logowatch/config.toml"
		}
		return fmt.Errorf("twitch.client_id and twitch.client_secret are required. Edit %s (create with 'logowatch config init')", defaultPath)
	}
	if c.Twitch.RequestTimeout <= 0 {
		return errors.New("twitch.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if strings.TrimSpace(c.Detection.LogoPath) == "" {
		return errors.New("detection.logo_path must point at the reference logo image")
	}
	if c.Detection.Threshold < 0 || c.Detection.Threshold > 1 {
		return errors.New("detection.threshold must be between 0 and 1")
	}
	if c.Detection.MultiScale {
		if c.Detection.ScaleMin <= 0 {
			return errors.New("detection.scale_min must be positive")
		}
		if c.Detection.ScaleMax < c.Detection.ScaleMin {
			return errors.New("detection.scale_max must be at least detection.scale_min")
		}
		if c.Detection.ScaleSteps <= 0 {
			return errors.New("detection.scale_steps must be positive")
		}
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if len(c.Monitor.Streamers) == 0 {
		return errors.New("monitor.streamers must list at least one login")
	}
	if err := ensurePositiveMap(map[string]int{
		"monitor.check_interval_hours": c.Monitor.CheckIntervalHours,
		"monitor.frame_concurrency":    c.Monitor.FrameConcurrency,
		"monitor.frame_timeout":        c.Monitor.FrameTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.Days <= 0 {
		return errors.New("retention.days must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		return nil
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
