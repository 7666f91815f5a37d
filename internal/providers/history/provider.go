package history

import (
	"context"
	"fmt"
	"math"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/types"
	"github.com/bytedance/sonic"
)

// ToolGetHistory is the external name of the history query tool.
const ToolGetHistory = "get_history"

// Querier reads history rows.
type Querier interface {
	Query(ctx context.Context, q Query) ([]Entry, error)
}

// Provider exposes the history store as a tool.
type Provider struct {
	store Querier
}

// NewProvider creates a history provider over store.
func NewProvider(store Querier) *Provider {
	return &Provider{store: store}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "history",
		Name:         "Command History",
		Description:  "Persisted log of executed shell commands",
		Category:     types.CategoryStorage,
		Capabilities: []string{"history", "query"},
		Tools: []types.Tool{
			{
				ID:          ToolGetHistory,
				Name:        "Get History",
				Description: "Get command execution history",
				Parameters: []types.Parameter{
					{
						Name:        "limit",
						Type:        types.ParamNumber,
						Description: "Number of history entries to return",
					},
					{
						Name:        "filter",
						Type:        types.ParamString,
						Description: "Filter commands containing this string",
					},
				},
				Returns: "json",
			},
		},
	}
}

// Execute runs get_history
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	if toolID != ToolGetHistory {
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}

	q, err := parseQuery(params)
	if err != nil {
		return nil, err
	}

	entries, err := p.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	out, err := Render(entries)
	if err != nil {
		return nil, err
	}
	return types.TextResult(out), nil
}

// Render formats entries as an indented JSON array, "[]" when empty.
func Render(entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "[]", nil
	}
	out, err := sonic.ConfigStd.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(out), nil
}

// parseQuery applies DefaultLimit only when limit is absent. An explicit
// zero is honoured.
func parseQuery(params map[string]interface{}) (Query, error) {
	q := Query{Limit: DefaultLimit}

	if raw, ok := params["limit"]; ok && raw != nil {
		var n float64
		switch v := raw.(type) {
		case float64:
			n = v
		case int:
			n = float64(v)
		default:
			return q, types.InvalidParams("limit must be a number")
		}
		if n < 0 {
			return q, types.InvalidParams("limit must not be negative")
		}
		q.Limit = NormalizeLimit(int(math.Min(n, MaxLimit)))
	}

	if raw, ok := params["filter"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return q, types.InvalidParams("filter must be a string")
		}
		q.Filter = s
	}

	return q, nil
}
