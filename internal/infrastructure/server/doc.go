// Package server wires the shell server together.
//
// NewServer builds, in order: metrics, the history store, the pty launcher,
// the session registry, the background job tracker, the executor, the tool
// registry with its providers, and the MCP stdio front end with its
// middleware chain (observe, then rate limit when enabled).
//
// Lifecycle:
//
//	srv, err := server.NewServer(cfg, logger)
//	defer srv.Close(ctx)
//	err = srv.Run(ctx, os.Stdin, os.Stdout)
//
// Run returns when the client closes stdin. Close kills every session and
// background job, then closes the database.
package server
