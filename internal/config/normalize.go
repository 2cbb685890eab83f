package config

import (
	"fmt"
	"os"
	"strings"
)

// applyEnv copies environment overrides over file values. Command-line
// overrides are applied later and win over both.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(EnvProtocol); ok && strings.TrimSpace(value) != "" {
		c.Protocol.Format = value
	}
	if value, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	c.normalizeProtocol()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	c.Daemon.CaptureMode = strings.ToLower(strings.TrimSpace(c.Daemon.CaptureMode))
	if c.Daemon.CaptureMode == "" {
		c.Daemon.CaptureMode = defaultCaptureMode
	}
	if c.Daemon.MaxLineBytes == 0 {
		c.Daemon.MaxLineBytes = defaultMaxLineBytes
	}

	var err error
	if c.Daemon.LockPath, err = expandPath(strings.TrimSpace(c.Daemon.LockPath)); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	if c.Daemon.PluginDir, err = expandPath(strings.TrimSpace(c.Daemon.PluginDir)); err != nil {
		return fmt.Errorf("daemon.plugin_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProtocol() {
	c.Protocol.Format = strings.ToLower(strings.TrimSpace(c.Protocol.Format))
	if c.Protocol.Format == "" {
		c.Protocol.Format = defaultProtocolFormat
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	return nil
}
