package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stderr is the only sink the server logs to by default
const Stderr = "stderr"

// Logger wraps zap.Logger so components can derive scoped children.
type Logger struct {
	*zap.Logger
}

// Config selects the level and format of the process logger.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means debug in
	// development and info otherwise.
	Level string
	// Development switches to coloured console output with stack traces
	// on warnings.
	Development bool
	// Output is a zap sink URL or file path; empty means stderr.
	Output string
}

// New builds a logger from zap's production or development preset.
func New(cfg Config) (*Logger, error) {
	base := zap.NewProductionConfig()
	base.EncoderConfig.TimeKey = "timestamp"
	base.EncoderConfig.MessageKey = "message"
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	base.Sampling = nil
	if cfg.Development {
		base = zap.NewDevelopmentConfig()
		base.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		base.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	}

	level := cfg.Level
	if level == "" {
		level = base.Level.String()
	}
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	base.Level = parsed

	output := cfg.Output
	if output == "" {
		output = Stderr
	}
	base.OutputPaths = []string{output}
	base.ErrorOutputPaths = []string{Stderr}

	logger, err := base.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}
