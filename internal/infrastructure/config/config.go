package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultShell is used when neither SHELL_PATH nor $SHELL is set.
const DefaultShell = "/bin/bash"

// Completion modes for persistent session commands.
const (
	CompletionMarker = "marker"
	CompletionGrace  = "grace"
)

// Config holds all application configuration.
type Config struct {
	Shell     ShellConfig
	Session   SessionConfig
	Jobs      JobsConfig
	History   HistoryConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// ShellConfig selects the shell program every pty process runs.
type ShellConfig struct {
	Path           string        `envconfig:"SHELL_PATH"`
	Args           []string      `envconfig:"SHELL_ARGS"`
	WorkDir        string        `envconfig:"SHELL_WORKDIR"`
	DefaultTimeout time.Duration `envconfig:"SHELL_DEFAULT_TIMEOUT" default:"30s"`
}

// SessionConfig holds persistent session settings.
type SessionConfig struct {
	Completion         string        `envconfig:"SESSION_COMPLETION" default:"marker"`
	Grace              time.Duration `envconfig:"SESSION_GRACE" default:"100ms"`
	InteractiveCapture time.Duration `envconfig:"INTERACTIVE_CAPTURE" default:"200ms"`
}

// JobsConfig bounds background job retention.
type JobsConfig struct {
	Max             int           `envconfig:"JOBS_MAX" default:"100"`
	TTL             time.Duration `envconfig:"JOBS_TTL" default:"1h"`
	CleanupInterval time.Duration `envconfig:"JOBS_CLEANUP_INTERVAL" default:"1m"`
}

// HistoryConfig holds history database settings.
type HistoryConfig struct {
	Path string `envconfig:"HISTORY_PATH"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds tool call rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// MetricsConfig holds the Prometheus endpoint address. Empty disables it.
type MetricsConfig struct {
	Address string `envconfig:"METRICS_ADDR"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Shell: ShellConfig{
			DefaultTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Completion:         CompletionMarker,
			Grace:              100 * time.Millisecond,
			InteractiveCapture: 200 * time.Millisecond,
		},
		Jobs: JobsConfig{
			Max:             100,
			TTL:             time.Hour,
			CleanupInterval: time.Minute,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Session.Completion {
	case CompletionMarker, CompletionGrace:
	default:
		return fmt.Errorf("invalid SESSION_COMPLETION %q (want %q or %q)",
			c.Session.Completion, CompletionMarker, CompletionGrace)
	}
	if c.Shell.DefaultTimeout <= 0 {
		return fmt.Errorf("SHELL_DEFAULT_TIMEOUT must be positive")
	}
	if c.Jobs.Max <= 0 {
		return fmt.Errorf("JOBS_MAX must be positive")
	}
	return nil
}

// ResolvePath returns the configured shell, falling back to $SHELL and then
// DefaultShell. The choice is made once at startup.
func (s ShellConfig) ResolvePath() string {
	if s.Path != "" {
		return s.Path
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return DefaultShell
}

// ResolveWorkDir returns the default working directory for spawned shells.
func (s ShellConfig) ResolveWorkDir() string {
	if s.WorkDir != "" {
		return s.WorkDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return os.TempDir()
}
