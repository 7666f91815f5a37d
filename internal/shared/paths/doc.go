// Package paths provides the per-user filesystem locations the shell server
// reads and writes.
//
// # Layout
//
//	$HOME/
//	  └── .shell-server.db   (command history, SQLite)
//
// # Usage
//
//	dbPath, err := paths.HistoryDB()
//
//	// Resolve a caller-supplied working directory
//	dir, err := paths.ResolveWorkDir(requested, fallback)
package paths
