package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/types"
)

// Registry manages service providers and routes tool calls to them
type Registry struct {
	mu       sync.RWMutex
	services map[string]Provider
	tools    map[string]Provider
}

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Provider),
		tools:    make(map[string]Provider),
	}
}

// Register adds a service provider. Tool IDs must be unique across services.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[def.ID]; exists {
		return fmt.Errorf("service already registered: %s", def.ID)
	}
	for _, tool := range def.Tools {
		if owner, exists := r.tools[tool.ID]; exists {
			return fmt.Errorf("tool %s already provided by %s", tool.ID, owner.Definition().ID)
		}
	}

	r.services[def.ID] = provider
	for _, tool := range def.Tools {
		r.tools[tool.ID] = provider
	}
	return nil
}

// List returns all registered services ordered by ID
func (r *Registry) List(category *types.Category) []types.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var services []types.Service
	for _, provider := range r.services {
		def := provider.Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services
}

// Tools returns every registered tool ordered by ID
func (r *Registry) Tools() []types.Tool {
	var tools []types.Tool
	for _, def := range r.List(nil) {
		tools = append(tools, def.Tools...)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools
}

// Execute runs a service tool
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	r.mu.RLock()
	provider, ok := r.tools[toolID]
	r.mu.RUnlock()

	if !ok {
		return nil, &unknownToolError{tool: toolID}
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return provider.Execute(ctx, toolID, params, appCtx)
}

// Call runs a tool and folds any failure into the result, so callers never
// see a Go error.
func (r *Registry) Call(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) *types.Result {
	result, err := r.Execute(ctx, toolID, params, appCtx)
	if err != nil {
		return types.Failure(err)
	}
	if result == nil {
		return types.ErrorResult(types.CodeInternal, "Unknown error occurred")
	}
	return result
}

type unknownToolError struct {
	tool string
}

func (e *unknownToolError) Error() string { return "Unknown tool: " + e.tool }

func (e *unknownToolError) Code() types.ErrorCode { return types.CodeNotFound }
