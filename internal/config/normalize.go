package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTwitch()
	if err := c.normalizeDetection(); err != nil {
		return err
	}
	c.normalizeMonitor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Bind = strings.TrimSpace(c.Paths.Bind)
	if c.Paths.Bind == "" {
		c.Paths.Bind = defaultBind
	}
	return nil
}

func (c *Config) normalizeTwitch() {
	c.Twitch.ClientID = strings.TrimSpace(c.Twitch.ClientID)
	c.Twitch.ClientSecret = strings.TrimSpace(c.Twitch.ClientSecret)
	if strings.TrimSpace(c.Twitch.AuthURL) == "" {
		c.Twitch.AuthURL = defaultAuthURL
	}
	if strings.TrimSpace(c.Twitch.APIURL) == "" {
		c.Twitch.APIURL = defaultAPIURL
	}
	c.Twitch.APIURL = strings.TrimRight(strings.TrimSpace(c.Twitch.APIURL), "/")
	if c.Twitch.RequestTimeout <= 0 {
		c.Twitch.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeDetection() error {
	var err error
	if c.Detection.LogoPath != "" {
		if c.Detection.LogoPath, err = expandPath(c.Detection.LogoPath); err != nil {
			return fmt.Errorf("detection.logo_path: %w", err)
		}
	}
	return nil
}

// normalizeMonitor trims the roster and lowercases logins while preserving
// the configured order. Twitch logins are case-insensitive; the lowercase
// form is the stable streamer identifier used everywhere downstream.
func (c *Config) normalizeMonitor() {
	seen := make(map[string]struct{}, len(c.Monitor.Streamers))
	cleaned := c.Monitor.Streamers[:0]
	for _, login := range c.Monitor.Streamers {
		login = strings.ToLower(strings.TrimSpace(login))
		if login == "" {
			continue
		}
		if _, ok := seen[login]; ok {
			continue
		}
		seen[login] = struct{}{}
		cleaned = append(cleaned, login)
	}
	c.Monitor.Streamers = cleaned
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
