// Package history persists executed shell commands.
//
// Store is an append-only SQLite table (modernc.org/sqlite, no cgo). Every
// execute_shell call that passed validation is written synchronously before
// the call returns. Rows are never updated or deleted.
//
// Provider exposes the get_history tool: newest rows first, optional
// case-sensitive substring filter on the command text, limit defaulting to
// 10 and capped at 1000.
//
// Database calls run behind a circuit breaker so a broken database file
// fails fast instead of blocking tool calls.
package history
