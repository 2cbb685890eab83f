package config

const (
	defaultCaptureMode           = CaptureModeStream
	defaultMaxLineBytes          = 16 << 20
	defaultRequestTimeoutSeconds = 0
	defaultReclaimMemory         = true
	defaultProtocolFormat        = ProtocolXML
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 20
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			CaptureMode:           defaultCaptureMode,
			MaxLineBytes:          defaultMaxLineBytes,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			ReclaimMemory:         defaultReclaimMemory,
		},
		Protocol: Protocol{
			Format: defaultProtocolFormat,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
