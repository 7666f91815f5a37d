package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

const (
	DefaultTimeout            = 30 * time.Second
	DefaultInteractiveCapture = 200 * time.Millisecond
)

// RunRequest describes one execute_shell command
type RunRequest struct {
	Command string
	Timeout time.Duration
	Dir     string
	Env     map[string]string
}

// ExecutorConfig holds executor tuning
type ExecutorConfig struct {
	DefaultTimeout     time.Duration
	InteractiveCapture time.Duration
}

// Executor runs commands in fresh shells
type Executor struct {
	spawner  Spawner
	sessions *Registry
	jobs     *Tracker
	config   ExecutorConfig
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewExecutor creates an executor. Interactive runs are adopted into
// sessions and background runs are handed to jobs.
func NewExecutor(spawner Spawner, sessions *Registry, jobs *Tracker, cfg ExecutorConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Executor {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.InteractiveCapture <= 0 {
		cfg.InteractiveCapture = DefaultInteractiveCapture
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Executor{
		spawner:  spawner,
		sessions: sessions,
		jobs:     jobs,
		config:   cfg,
		logger:   logger.Named("executor"),
		metrics:  metrics,
	}
}

func (e *Executor) timeout(req RunRequest) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return e.config.DefaultTimeout
}

// Run executes req.Command in a fresh shell and waits for it to finish.
// A nonzero exit status or an elapsed timeout is reported as *ExecError.
func (e *Executor) Run(ctx context.Context, req RunRequest) (string, error) {
	timeout := e.timeout(req)

	proc, err := e.spawner.Spawn(ctx, "direct", req.Dir, req.Env)
	if err != nil {
		return "", err
	}

	out := newCapture()
	unsubscribe := proc.Subscribe(out.write)
	defer unsubscribe()

	// the shell stays interactive, so it is told to exit after the command
	if err := proc.Write([]byte(req.Command + "\r" + "exit\r")); err != nil {
		proc.Kill()
		return "", fmt.Errorf("send command: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-proc.Exited():
		if ev.Code != 0 {
			return "", &ExecError{ExitCode: ev.Code, Output: out.String()}
		}
		return out.String(), nil

	case <-timer.C:
		proc.Kill()
		e.metrics.IncTimeout()
		e.logger.Warn("command timed out",
			zap.String("command", req.Command),
			zap.Int("pid", proc.Pid()),
			zap.Duration("timeout", timeout))
		return "", &ExecError{TimedOut: true, Timeout: timeout}

	case <-ctx.Done():
		proc.Kill()
		return "", ctx.Err()
	}
}

// RunInteractive starts req.Command, returns what it printed during the
// capture window, and keeps the shell as a session for follow-up calls.
// The session is killed when req's timeout elapses.
func (e *Executor) RunInteractive(ctx context.Context, req RunRequest) (string, error) {
	timeout := e.timeout(req)

	proc, err := e.spawner.Spawn(ctx, "interactive", req.Dir, req.Env)
	if err != nil {
		return "", err
	}

	out := newCapture()
	unsubscribe := proc.Subscribe(out.write)

	if err := proc.Write([]byte(req.Command + "\r")); err != nil {
		unsubscribe()
		proc.Kill()
		return "", fmt.Errorf("send command: %w", err)
	}

	capture := time.NewTimer(min(e.config.InteractiveCapture, timeout))
	defer capture.Stop()

	select {
	case ev := <-proc.Exited():
		unsubscribe()
		e.logger.Debug("interactive shell exited during capture", zap.Int("exit_code", ev.Code))
		return out.String(), nil

	case <-ctx.Done():
		unsubscribe()
		proc.Kill()
		return "", ctx.Err()

	case <-capture.C:
	}

	unsubscribe()
	sessionID := e.sessions.Adopt(proc, OriginInteractive, timeout)
	return fmt.Sprintf("%s\n[interactive session: %s]", out.String(), sessionID), nil
}

// RunBackground starts req.Command in a tracked shell and returns its pid
// without waiting.
func (e *Executor) RunBackground(ctx context.Context, req RunRequest) (int, error) {
	if err := e.jobs.Admit(); err != nil {
		return 0, err
	}

	proc, err := e.spawner.Spawn(ctx, "background", req.Dir, req.Env)
	if err != nil {
		return 0, err
	}

	if err := e.jobs.Track(proc, req.Command); err != nil {
		proc.Kill()
		return 0, err
	}

	if err := proc.Write([]byte(req.Command + "\r" + "exit\r")); err != nil {
		e.logger.Warn("background command not delivered", zap.Int("pid", proc.Pid()), zap.Error(err))
	}

	e.logger.Info("background job started", zap.Int("pid", proc.Pid()), zap.String("command", req.Command))
	return proc.Pid(), nil
}
