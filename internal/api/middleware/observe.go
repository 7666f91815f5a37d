package middleware

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Call outcomes as recorded in metrics
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Observe times and logs every tool call.
func Observe(logger *logging.Logger, metrics *monitoring.Metrics) server.ToolHandlerMiddleware {
	if logger == nil {
		logger = logging.NewNop()
	}

	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tool := req.Params.Name
			timer := monitoring.NewTimer(metrics, tool)

			result, err := next(ctx, req)

			status := StatusSuccess
			if err != nil || result == nil || result.IsError {
				status = StatusError
			}
			timer.Stop(status)

			logger.Debug("Tool call finished",
				zap.String("tool", tool),
				zap.String("status", status),
				zap.Error(err),
			)
			return result, err
		}
	}
}
