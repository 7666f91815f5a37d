// Package middleware wraps MCP tool handlers with cross-cutting behavior.
//
// Middlewares compose in registration order, the first being outermost:
//
//	server.WithToolHandlerMiddleware(middleware.Observe(logger, metrics))
//	server.WithToolHandlerMiddleware(middleware.RateLimit(cfg, metrics))
//
// Observe records a duration and status for every call, rate-limited ones
// included. RateLimit answers rejected calls with an in-band error result so
// the client sees a normal tool failure rather than a protocol error.
package middleware
