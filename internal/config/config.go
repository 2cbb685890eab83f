package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Capture modes accepted by daemon.capture_mode.
const (
	CaptureModeStream     = "stream"
	CaptureModeDescriptor = "descriptor"
)

// Wire formats accepted by protocol.format.
const (
	ProtocolXML  = "xml"
	ProtocolJSON = "json"
)

// Environment variables that override file values.
const (
	EnvLogLevel = "RESIDENT_LOG_LEVEL"
	EnvProtocol = "RESIDENT_PROTOCOL"
)

const appName = "resident"

// Daemon contains serve loop and capture settings.
type Daemon struct {
	CaptureMode           string `toml:"capture_mode"`
	MaxLineBytes          int    `toml:"max_line_bytes"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	ReclaimMemory         bool   `toml:"reclaim_memory"`
	LockPath              string `toml:"lock_path"`
	PluginDir             string `toml:"plugin_dir"`
}

// Protocol contains wire format settings.
type Protocol struct {
	Format string `toml:"format"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for resident.
//
// Configuration sections by subsystem:
//   - Daemon: capture mode, line limits, timeouts, lock and plugin paths
//   - Protocol: request/response line format
//   - Logging: log format, level, and optional rotated file
type Config struct {
	Daemon   Daemon   `toml:"daemon"`
	Protocol Protocol `toml:"protocol"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. A missing file is not an error;
// the defaults are used and the returned bool reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath := DefaultConfigPath()

	projectPath, err := filepath.Abs(appName + ".toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Overrides carries command-line values that take precedence over the file
// and the environment. Empty strings and nil pointers keep the loaded value.
type Overrides struct {
	CaptureMode    string
	Protocol       string
	LogLevel       string
	LogFormat      string
	LogFile        string
	LockPath       string
	PluginDir      string
	RequestTimeout *time.Duration
}

// Apply merges overrides into the config, then normalizes and validates the
// result again.
func (c *Config) Apply(o Overrides) error {
	set := func(dst *string, value string) {
		if strings.TrimSpace(value) != "" {
			*dst = value
		}
	}
	set(&c.Daemon.CaptureMode, o.CaptureMode)
	set(&c.Protocol.Format, o.Protocol)
	set(&c.Logging.Level, o.LogLevel)
	set(&c.Logging.Format, o.LogFormat)
	set(&c.Logging.File, o.LogFile)
	set(&c.Daemon.LockPath, o.LockPath)
	set(&c.Daemon.PluginDir, o.PluginDir)
	if o.RequestTimeout != nil {
		c.Daemon.RequestTimeoutSeconds = int(o.RequestTimeout.Round(time.Second) / time.Second)
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// RequestTimeout returns the per-request deadline, or zero when disabled.
func (c *Config) RequestTimeout() time.Duration {
	if c.Daemon.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Daemon.RequestTimeoutSeconds) * time.Second
}

// EnsureDirectories creates the parent directories of configured files.
func (c *Config) EnsureDirectories() error {
	for _, file := range []string{c.Logging.File, c.Daemon.LockPath} {
		if strings.TrimSpace(file) == "" {
			continue
		}
		dir := filepath.Dir(file)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
