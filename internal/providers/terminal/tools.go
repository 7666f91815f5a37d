package terminal

import "github.com/GriffinCanCode/AgentOS/shell-server/internal/types"

func sessionIDParam(description string) types.Parameter {
	return types.Parameter{
		Name:        "sessionId",
		Type:        types.ParamString,
		Description: description,
		Required:    true,
	}
}

func envParam(description string) types.Parameter {
	return types.Parameter{
		Name:        "env",
		Type:        types.ParamObject,
		Description: description,
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          ToolExecuteShell,
			Name:        "Execute Shell",
			Description: "Execute a shell command with advanced options",
			Parameters: []types.Parameter{
				{
					Name:        "command",
					Type:        types.ParamString,
					Description: "Command to execute",
					Required:    true,
				},
				{
					Name:        "timeout",
					Type:        types.ParamNumber,
					Description: "Timeout in milliseconds (default: 30000)",
				},
				{
					Name:        "cwd",
					Type:        types.ParamString,
					Description: "Working directory for command execution",
				},
				{
					Name:        "interactive",
					Type:        types.ParamBoolean,
					Description: "Run in interactive mode; the shell is kept as a session for read_session and close_session",
				},
				{
					Name:        "background",
					Type:        types.ParamBoolean,
					Description: "Run command in background",
				},
				{
					Name:        "sessionId",
					Type:        types.ParamString,
					Description: "Session ID for persistent sessions",
				},
				envParam("Environment variables"),
			},
			Returns: "text",
		},
		{
			ID:          ToolListProcesses,
			Name:        "List Processes",
			Description: "List all active background processes",
			Returns:     "json",
		},
		{
			ID:          ToolKillProcess,
			Name:        "Kill Process",
			Description: "Kill a running process",
			Parameters: []types.Parameter{
				{
					Name:        "pid",
					Type:        types.ParamNumber,
					Description: "Process ID to kill",
					Required:    true,
				},
			},
			Returns: "text",
		},
		{
			ID:          ToolCreateSession,
			Name:        "Create Session",
			Description: "Create a new persistent shell session",
			Parameters: []types.Parameter{
				envParam("Environment variables for the session"),
			},
			Returns: "text",
		},
		{
			ID:          ToolReadSession,
			Name:        "Read Session",
			Description: "Read output a session produced since the last command or read",
			Parameters: []types.Parameter{
				sessionIDParam("Session ID to read from"),
			},
			Returns: "text",
		},
		{
			ID:          ToolCloseSession,
			Name:        "Close Session",
			Description: "Terminate a persistent session",
			Parameters: []types.Parameter{
				sessionIDParam("Session ID to close"),
			},
			Returns: "text",
		},
		{
			ID:          ToolListSessions,
			Name:        "List Sessions",
			Description: "List open persistent sessions",
			Returns:     "json",
		},
	}
}
