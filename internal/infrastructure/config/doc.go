// Package config provides 12-factor configuration management for the shell server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables.
//
// Configuration Sections:
//   - Shell: shell program, arguments, default working directory and timeout
//   - Session: completion detection for persistent sessions
//   - Jobs: background job retention limits
//   - History: history database location
//   - Logging: log level and output format
//   - RateLimit: tool call rate limiting
//   - Metrics: optional Prometheus endpoint
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	shell := cfg.Shell.ResolvePath()
//
// Environment Variables:
//   - SHELL_PATH, SHELL_ARGS, SHELL_WORKDIR, SHELL_DEFAULT_TIMEOUT
//   - SESSION_COMPLETION, SESSION_GRACE, INTERACTIVE_CAPTURE
//   - JOBS_MAX, JOBS_TTL, JOBS_CLEANUP_INTERVAL
//   - HISTORY_PATH
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - METRICS_ADDR
package config
