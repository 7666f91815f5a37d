package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/providers/history"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/types"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Append(ctx context.Context, e history.Entry) (history.Entry, error) {
	args := m.Called(ctx, e)
	return e, args.Error(0)
}

func newTestProvider(t *testing.T) (*Provider, *mockRecorder, *harness) {
	t.Helper()
	h := newHarness(t, harnessOptions{})
	rec := &mockRecorder{}
	return NewProvider(h.executor, h.sessions, h.jobs, rec, nil), rec, h
}

func entryWith(command string, exitCode int, output func(string) bool) interface{} {
	return mock.MatchedBy(func(e history.Entry) bool {
		return e.Command == command && e.ExitCode == exitCode && output(e.Output) && e.Duration >= 0
	})
}

func TestProviderDefinition(t *testing.T) {
	p, _, _ := newTestProvider(t)
	def := p.Definition()

	assert.Equal(t, "terminal", def.ID)
	names := make([]string, 0, len(def.Tools))
	for _, tool := range def.Tools {
		names = append(names, tool.ID)
	}
	assert.ElementsMatch(t, []string{
		ToolExecuteShell, ToolListProcesses, ToolKillProcess, ToolCreateSession,
		ToolReadSession, ToolCloseSession, ToolListSessions,
	}, names)
}

func TestExecuteShellRequiresCommand(t *testing.T) {
	p, rec, _ := newTestProvider(t)

	for _, params := range []map[string]interface{}{
		{},
		{"command": ""},
		{"command": 42.0},
	} {
		_, err := p.Execute(context.Background(), ToolExecuteShell, params, nil)
		require.Error(t, err)
		assert.Equal(t, "Command is required", err.Error())
		assert.Equal(t, types.CodeInvalidParams, types.CodeOf(err))
	}
	rec.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestExecuteShellRejectsBadOptions(t *testing.T) {
	p, rec, _ := newTestProvider(t)

	tests := []map[string]interface{}{
		{"command": "true", "timeout": "soon"},
		{"command": "true", "timeout": -1.0},
		{"command": "true", "timeout": 1e300},
		{"command": "true", "timeout": float64(maxTimeoutMs + 1)},
		{"command": "true", "background": "yes"},
		{"command": "true", "env": "A=B"},
		{"command": "true", "env": map[string]interface{}{"A": 1.0}},
	}
	for _, params := range tests {
		_, err := p.Execute(context.Background(), ToolExecuteShell, params, nil)
		assert.Equal(t, types.CodeInvalidParams, types.CodeOf(err), "params: %v", params)
	}
	rec.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestExecuteShellRejectsOversizedTimeout(t *testing.T) {
	p, rec, _ := newTestProvider(t)

	_, err := p.Execute(context.Background(), ToolExecuteShell, map[string]interface{}{
		"command": "true",
		"timeout": 1e17,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, types.CodeInvalidParams, types.CodeOf(err))
	assert.Equal(t, fmt.Sprintf("timeout must be at most %d ms", maxTimeoutMs), err.Error())
	rec.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestExecuteShellRecordsSuccess(t *testing.T) {
	p, rec, _ := newTestProvider(t)
	rec.On("Append", mock.Anything, entryWith(`echo "hel""lo"`, 0, func(out string) bool {
		return strings.Contains(out, "hello")
	})).Return(nil).Once()

	result, err := p.Execute(context.Background(), ToolExecuteShell, map[string]interface{}{
		"command": `echo "hel""lo"`,
	}, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Text, "hello")
	rec.AssertExpectations(t)
}

func TestExecuteShellRecordsTimeout(t *testing.T) {
	p, rec, _ := newTestProvider(t)
	rec.On("Append", mock.Anything, entryWith("sleep 30", 1, func(out string) bool {
		return out == "Command timed out after 100ms"
	})).Return(nil).Once()

	start := time.Now()
	_, err := p.Execute(context.Background(), ToolExecuteShell, map[string]interface{}{
		"command": "sleep 30",
		"timeout": 100.0,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "Command timed out after 100ms", err.Error())
	assert.Equal(t, types.CodeExecution, types.CodeOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
	rec.AssertExpectations(t)
}

func TestExecuteShellHistoryFailureDoesNotFailCommand(t *testing.T) {
	p, rec, _ := newTestProvider(t)
	rec.On("Append", mock.Anything, mock.Anything).Return(errors.New("database is locked")).Once()

	result, err := p.Execute(context.Background(), ToolExecuteShell, map[string]interface{}{"command": "true"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	rec.AssertExpectations(t)
}

func TestExecuteShellInvalidSession(t *testing.T) {
	p, rec, _ := newTestProvider(t)
	rec.On("Append", mock.Anything, entryWith("echo", 1, func(out string) bool {
		return out == "Invalid session ID"
	})).Return(nil).Once()

	_, err := p.Execute(context.Background(), ToolExecuteShell, map[string]interface{}{
		"command":   "echo",
		"sessionId": "00000000-0000-0000-0000-000000000000",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "Invalid session ID", err.Error())
	rec.AssertExpectations(t)
}

func TestCreateSessionThenExecute(t *testing.T) {
	p, rec, _ := newTestProvider(t)
	rec.On("Append", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	result, err := p.Execute(ctx, ToolCreateSession, map[string]interface{}{
		"env": map[string]interface{}{"GREETING": "hi-there"},
	}, nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.Text, "Session created with ID: "))
	sessionID := strings.TrimPrefix(result.Text, "Session created with ID: ")
	assert.True(t, id.IsUUID(sessionID))

	result, err = p.Execute(ctx, ToolExecuteShell, map[string]interface{}{
		"command":   `echo "$GREETING"`,
		"sessionId": sessionID,
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "hi-there")

	result, err = p.Execute(ctx, ToolListSessions, nil, nil)
	require.NoError(t, err)
	var sessions []SessionInfo
	require.NoError(t, sonic.UnmarshalString(result.Text, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].ID)

	result, err = p.Execute(ctx, ToolReadSession, map[string]interface{}{"sessionId": sessionID}, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = p.Execute(ctx, ToolCloseSession, map[string]interface{}{"sessionId": sessionID}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Session "+sessionID+" closed", result.Text)

	_, err = p.Execute(ctx, ToolReadSession, map[string]interface{}{}, nil)
	assert.Equal(t, types.CodeInvalidParams, types.CodeOf(err))
}

func TestBackgroundListAndKill(t *testing.T) {
	p, rec, _ := newTestProvider(t)
	rec.On("Append", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	result, err := p.Execute(ctx, ToolListProcesses, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", result.Text)

	result, err = p.Execute(ctx, ToolExecuteShell, map[string]interface{}{
		"command":    "sleep 30",
		"background": true,
	}, nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.Text, "Process started with PID: "))

	result, err = p.Execute(ctx, ToolListProcesses, nil, nil)
	require.NoError(t, err)
	var procs []map[string]interface{}
	require.NoError(t, sonic.UnmarshalString(result.Text, &procs))
	require.Len(t, procs, 1)
	assert.Equal(t, "sleep 30", procs[0]["command"])
	assert.Equal(t, "running", procs[0]["status"])
	assert.NotContains(t, procs[0], "exitCode")
	pid := procs[0]["pid"].(float64)

	again, err := p.Execute(ctx, ToolListProcesses, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, result.Text, again.Text)

	result, err = p.Execute(ctx, ToolKillProcess, map[string]interface{}{"pid": pid}, nil)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Process %d killed successfully", int(pid)), result.Text)

	_, err = p.Execute(ctx, ToolKillProcess, map[string]interface{}{"pid": pid}, nil)
	require.Error(t, err)
	assert.Equal(t, types.CodeNotFound, types.CodeOf(err))
}

func TestKillProcessValidation(t *testing.T) {
	p, _, _ := newTestProvider(t)

	_, err := p.Execute(context.Background(), ToolKillProcess, map[string]interface{}{}, nil)
	assert.Equal(t, "PID is required", err.Error())

	_, err = p.Execute(context.Background(), ToolKillProcess, map[string]interface{}{"pid": 1.5}, nil)
	assert.Equal(t, types.CodeInvalidParams, types.CodeOf(err))

	_, err = p.Execute(context.Background(), ToolKillProcess, map[string]interface{}{"pid": 12345.0}, nil)
	assert.Equal(t, "No process found with PID 12345", err.Error())
}

func TestUnknownTool(t *testing.T) {
	p, _, _ := newTestProvider(t)

	_, err := p.Execute(context.Background(), "format_disk", nil, nil)
	assert.Error(t, err)
}
