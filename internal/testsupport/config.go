package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"resident/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test.
// Logging goes to a file under that directory and memory reclamation is off so
// tests stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.ReclaimMemory = false
	cfgVal.Daemon.PluginDir = filepath.Join(base, "plugins")
	cfgVal.Logging.File = filepath.Join(base, "logs", "resident.log")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithProtocol selects the wire format.
func WithProtocol(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Protocol.Format = format
	}
}

// WithCaptureMode selects the capture mode.
func WithCaptureMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.CaptureMode = mode
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.RequestTimeoutSeconds = int(d / time.Second)
	}
}

// WithLock places the instance lock inside the test directory.
func WithLock() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.LockPath = filepath.Join(b.baseDir, "run", "resident.lock")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Logging.File))
}

// WriteConfig encodes cfg as TOML into the test directory and returns the
// file path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
