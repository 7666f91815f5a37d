package terminal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/providers/history"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/types"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Tool names
const (
	ToolExecuteShell  = "execute_shell"
	ToolListProcesses = "list_processes"
	ToolKillProcess   = "kill_process"
	ToolCreateSession = "create_session"
	ToolReadSession   = "read_session"
	ToolCloseSession  = "close_session"
	ToolListSessions  = "list_sessions"

	// maxTimeoutMs is the longest timeout a time.Duration can hold
	maxTimeoutMs = int64(math.MaxInt64 / time.Millisecond)
)

// Recorder persists execute_shell outcomes
type Recorder interface {
	Append(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Provider implements the shell tools
type Provider struct {
	executor *Executor
	sessions *Registry
	jobs     *Tracker
	history  Recorder
	logger   *logging.Logger
	now      func() time.Time
}

// NewProvider creates a new terminal provider
func NewProvider(executor *Executor, sessions *Registry, jobs *Tracker, recorder Recorder, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		executor: executor,
		sessions: sessions,
		jobs:     jobs,
		history:  recorder,
		logger:   logger.Named("terminal"),
		now:      time.Now,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Shell Service",
		Description: "Run shell commands on pseudo-terminals with sessions and background jobs",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"pty",
			"shell",
			"sessions",
			"background",
			"interactive",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case ToolExecuteShell:
		return p.executeShell(ctx, params)
	case ToolListProcesses:
		return p.listProcesses()
	case ToolKillProcess:
		return p.killProcess(params)
	case ToolCreateSession:
		return p.createSession(ctx, params)
	case ToolReadSession:
		return p.readSession(params)
	case ToolCloseSession:
		return p.closeSession(params)
	case ToolListSessions:
		return p.listSessions()
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) executeShell(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	command, _ := params["command"].(string)
	if command == "" {
		return nil, invalidInput("execute_shell", "Command is required")
	}

	req := RunRequest{Command: command}
	timeoutMs, err := optionalNumber(params, "timeout")
	if err != nil {
		return nil, err
	}
	if timeoutMs > maxTimeoutMs {
		return nil, invalidInput("execute_shell", "timeout must be at most %d ms", maxTimeoutMs)
	}
	req.Timeout = time.Duration(timeoutMs) * time.Millisecond

	if req.Dir, err = optionalString(params, "cwd"); err != nil {
		return nil, err
	}
	if req.Env, err = optionalEnv(params, "env"); err != nil {
		return nil, err
	}
	interactive, err := optionalBool(params, "interactive")
	if err != nil {
		return nil, err
	}
	background, err := optionalBool(params, "background")
	if err != nil {
		return nil, err
	}
	sessionID, err := optionalString(params, "sessionId")
	if err != nil {
		return nil, err
	}

	start := p.now()
	var output string
	switch {
	case sessionID != "":
		output, err = p.sessions.Exec(ctx, sessionID, command, req.Timeout)
	case interactive:
		output, err = p.executor.RunInteractive(ctx, req)
	case background:
		var pid int
		if pid, err = p.executor.RunBackground(ctx, req); err == nil {
			output = fmt.Sprintf("Process started with PID: %d", pid)
		}
	default:
		output, err = p.executor.Run(ctx, req)
	}
	duration := p.now().Sub(start)

	entry := history.Entry{Command: command, Output: output, Duration: duration.Milliseconds()}
	if err != nil {
		entry.Output = err.Error()
		entry.ExitCode = 1
	}
	p.record(ctx, entry)

	if err != nil {
		p.logger.Warn("command failed",
			zap.String("command", command),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}
	return types.TextResult(output), nil
}

// record writes the history row. A history failure is logged and does not
// change the command's own result.
func (p *Provider) record(ctx context.Context, e history.Entry) {
	if p.history == nil {
		return
	}
	// the command already ran, so a cancelled caller still gets its row
	if _, err := p.history.Append(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Error("failed to record history", zap.String("command", e.Command), zap.Error(err))
	}
}

func (p *Provider) listProcesses() (*types.Result, error) {
	return jsonResult(p.jobs.List())
}

func (p *Provider) killProcess(params map[string]interface{}) (*types.Result, error) {
	raw, ok := params["pid"]
	if !ok || raw == nil {
		return nil, invalidInput("kill_process", "PID is required")
	}
	pid, ok := toInt(raw)
	if !ok {
		return nil, invalidInput("kill_process", "PID must be an integer")
	}

	if err := p.jobs.Kill(pid); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Process %d killed successfully", pid)), nil
}

func (p *Provider) createSession(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	env, err := optionalEnv(params, "env")
	if err != nil {
		return nil, err
	}

	sessionID, err := p.sessions.Create(ctx, env)
	if err != nil {
		return nil, err
	}
	return types.TextResult("Session created with ID: " + sessionID), nil
}

func (p *Provider) readSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requiredSessionID(params)
	if err != nil {
		return nil, err
	}

	output, err := p.sessions.Read(sessionID)
	if err != nil {
		return nil, err
	}
	return types.TextResult(output), nil
}

func (p *Provider) closeSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requiredSessionID(params)
	if err != nil {
		return nil, err
	}

	if err := p.sessions.Close(sessionID); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Session %s closed", sessionID)), nil
}

func (p *Provider) listSessions() (*types.Result, error) {
	return jsonResult(p.sessions.List())
}

func jsonResult(v interface{}) (*types.Result, error) {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return types.TextResult(string(out)), nil
}

func requiredSessionID(params map[string]interface{}) (string, error) {
	sessionID, _ := params["sessionId"].(string)
	if sessionID == "" {
		return "", invalidInput("session", "sessionId is required")
	}
	return sessionID, nil
}

func optionalString(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", invalidInput("params", "%s must be a string", key)
	}
	return s, nil
}

func optionalBool(params map[string]interface{}, key string) (bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, invalidInput("params", "%s must be a boolean", key)
	}
	return b, nil
}

func optionalNumber(params map[string]interface{}, key string) (int64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := toInt(raw)
	if !ok || n < 0 {
		return 0, invalidInput("params", "%s must be a non-negative integer", key)
	}
	return int64(n), nil
}

func optionalEnv(params map[string]interface{}, key string) (map[string]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		env := make(map[string]string, len(v))
		for k, val := range v {
			s, ok := val.(string)
			if !ok {
				return nil, invalidInput("params", "%s.%s must be a string", key, k)
			}
			env[k] = s
		}
		return env, nil
	default:
		return nil, invalidInput("params", "%s must be an object", key)
	}
}

// toInt accepts JSON numbers that hold a whole value
func toInt(raw interface{}) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
