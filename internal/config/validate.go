package config

import (
	"errors"
	"fmt"
	"runtime"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateProtocol(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.CaptureMode {
	case CaptureModeStream:
	case CaptureModeDescriptor:
		if runtime.GOOS != "linux" {
			return fmt.Errorf("daemon.capture_mode %q is only supported on linux", c.Daemon.CaptureMode)
		}
	default:
		return fmt.Errorf("daemon.capture_mode must be %q or %q, got %q", CaptureModeStream, CaptureModeDescriptor, c.Daemon.CaptureMode)
	}
	if c.Daemon.MaxLineBytes < 1024 {
		return fmt.Errorf("daemon.max_line_bytes must be at least 1024, got %d", c.Daemon.MaxLineBytes)
	}
	if c.Daemon.RequestTimeoutSeconds < 0 {
		return errors.New("daemon.request_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateProtocol() error {
	switch c.Protocol.Format {
	case ProtocolXML, ProtocolJSON:
		return nil
	default:
		return fmt.Errorf("protocol.format must be %q or %q, got %q", ProtocolXML, ProtocolJSON, c.Protocol.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.MaxBackups < 0 {
		return errors.New("logging.max_backups must be zero or positive")
	}
	if c.Logging.MaxAgeDays < 0 {
		return errors.New("logging.max_age_days must be zero or positive")
	}
	return nil
}
