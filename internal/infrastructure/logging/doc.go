// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: console output for human readability
//
// All output goes to stderr. The shell server speaks MCP on stdout, so a
// log line there would corrupt the protocol stream.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	calls := logger.Named("calls").With(zap.String("call_id", id))
//	calls.Error("History write failed", zap.Error(err))
package logging
