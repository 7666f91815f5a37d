package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/service"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/types"
	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server identity reported during the MCP handshake
const (
	DefaultName    = "shell-server"
	DefaultVersion = "0.1.0"
)

// Options configures a Server. Zero values are usable.
type Options struct {
	Name       string
	Version    string
	Logger     *logging.Logger
	Middleware []server.ToolHandlerMiddleware
}

// Server exposes every tool in a service registry to one MCP client.
type Server struct {
	registry *service.Registry
	mcp      *server.MCPServer
	tools    map[string]struct{}
	logger   *logging.Logger
}

// New builds the MCP server and registers one handler per registry tool.
// Tools registered with the registry afterwards are not exposed.
func New(registry *service.Registry, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	serverOpts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	for _, mw := range opts.Middleware {
		serverOpts = append(serverOpts, server.WithToolHandlerMiddleware(mw))
	}

	s := &Server{
		registry: registry,
		mcp:      server.NewMCPServer(opts.Name, opts.Version, serverOpts...),
		tools:    make(map[string]struct{}),
		logger:   opts.Logger.Named("mcp"),
	}

	for _, tool := range registry.Tools() {
		s.mcp.AddTool(Definition(tool), s.handler(tool.ID))
		s.tools[tool.ID] = struct{}{}
	}
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// HandleMessage processes one JSON-RPC message. A tools/call naming an
// unregistered tool is answered in-band by the registry; everything else
// goes to mcp-go, which would reject it as a protocol error.
func (s *Server) HandleMessage(ctx context.Context, raw json.RawMessage) mcp.JSONRPCMessage {
	if reply, ok := s.unknownToolReply(ctx, raw); ok {
		return reply
	}
	return s.mcp.HandleMessage(ctx, raw)
}

// Serve speaks newline-delimited JSON-RPC on in and out until in is
// exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	w := &lockedWriter{w: out}
	pr, pw := io.Pipe()
	defer pr.Close()
	go s.dispatch(ctx, in, pw, w)

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Logger))

	s.logger.Info("Serving MCP over stdio", zap.Int("tools", len(s.tools)))
	return stdio.Listen(ctx, pr, w)
}

// dispatch answers unknown-tool calls itself and forwards every other line
// to mcp-go through pass.
func (s *Server) dispatch(ctx context.Context, in io.Reader, pass *io.PipeWriter, out io.Writer) {
	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if reply, ok := s.unknownToolReply(ctx, line); ok {
				if werr := writeMessage(out, reply); werr != nil {
					s.logger.Warn("Failed to write reply", zap.Error(werr))
				}
			} else if _, werr := pass.Write(line); werr != nil {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				pass.Close()
			} else {
				pass.CloseWithError(err)
			}
			return
		}
	}
}

// toolCallReply is a tools/call response written without mcp-go
type toolCallReply struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      json.RawMessage     `json:"id"`
	Result  *mcp.CallToolResult `json:"result"`
}

func (s *Server) unknownToolReply(ctx context.Context, raw []byte) (*toolCallReply, bool) {
	var msg struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params struct {
			Name      string                 `json:"name"`
			Arguments map[string]interface{} `json:"arguments"`
		} `json:"params"`
	}
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}
	if msg.Method != "tools/call" || len(msg.ID) == 0 {
		return nil, false
	}
	if _, ok := s.tools[msg.Params.Name]; ok {
		return nil, false
	}

	callID := id.NewCallID().String()
	result := s.registry.Call(ctx, msg.Params.Name, msg.Params.Arguments, &types.Context{CallID: callID})
	s.logger.With(zap.String("call_id", callID), zap.String("tool", msg.Params.Name)).
		Debug("Unknown tool called")
	return &toolCallReply{JSONRPC: mcp.JSONRPC_VERSION, ID: msg.ID, Result: ToResult(result)}, true
}

func writeMessage(w io.Writer, msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// lockedWriter serialises whole-message writes from mcp-go and dispatch
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (s *Server) handler(toolID string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := id.NewCallID().String()
		log := s.logger.With(zap.String("call_id", callID), zap.String("tool", toolID))
		result := s.registry.Call(ctx, toolID, req.GetArguments(), &types.Context{CallID: callID})

		if !result.Success {
			log.Debug("Tool call failed", zap.String("code", string(result.Code)))
		}
		return ToResult(result), nil
	}
}

// ToResult converts a registry result into MCP content. Failures carry the
// "Error: " prefix and set isError.
func ToResult(result *types.Result) *mcp.CallToolResult {
	if result.Success {
		return mcp.NewToolResultText(result.Text)
	}

	msg := "unknown error"
	if result.Error != nil {
		msg = *result.Error
	}
	return mcp.NewToolResultError("Error: " + msg)
}

// Definition renders a tool and its parameters as an MCP tool with a JSON
// input schema.
func Definition(tool types.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(tool.Description)}

	for _, param := range tool.Parameters {
		props := []mcp.PropertyOption{mcp.Description(param.Description)}
		if param.Required {
			props = append(props, mcp.Required())
		}

		switch param.Type {
		case types.ParamNumber:
			opts = append(opts, mcp.WithNumber(param.Name, props...))
		case types.ParamBoolean:
			opts = append(opts, mcp.WithBoolean(param.Name, props...))
		case types.ParamObject:
			// object parameters are string maps (env)
			props = append(props, mcp.AdditionalProperties(map[string]any{"type": "string"}))
			opts = append(opts, mcp.WithObject(param.Name, props...))
		default:
			opts = append(opts, mcp.WithString(param.Name, props...))
		}
	}

	return mcp.NewTool(tool.ID, opts...)
}
