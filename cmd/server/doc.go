// Command shell-server is an MCP server that runs shell commands on
// pseudo-terminals.
//
// It speaks JSON-RPC on stdin/stdout, so every log line goes to stderr.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Serve (default)
//	shell-server
//	shell-server serve --shell /bin/zsh --completion grace
//
//	# Inspect the history database
//	shell-server history --limit 20 --filter git
//
//	# Development logging and a metrics endpoint
//	shell-server --dev --metrics-addr 127.0.0.1:9100
//
// Signals:
//   - SIGINT, SIGTERM: kill sessions and background jobs, close the database
package main
