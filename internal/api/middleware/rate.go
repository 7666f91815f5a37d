package middleware

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"
)

// RateLimitedMessage is the in-band error a rejected call receives.
const RateLimitedMessage = "Error: rate limit exceeded"

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// RateLimit creates a global token bucket shared by every tool call.
// Rejected calls never reach the handler.
func RateLimit(cfg RateLimitConfig, metrics *monitoring.Metrics) server.ToolHandlerMiddleware {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if !limiter.Allow() {
				metrics.IncToolRejected()
				return mcp.NewToolResultError(RateLimitedMessage), nil
			}
			return next(ctx, req)
		}
	}
}
