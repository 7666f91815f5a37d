// Package service provides the tool registry that routes calls to providers.
//
// Each provider describes itself with a types.Service whose tools carry flat,
// externally visible names ("execute_shell", "get_history"). Register
// indexes every tool name to its provider and rejects duplicates, so a call
// is routed by name alone.
//
// Components:
//   - Registry: provider catalog and tool index
//   - Provider: interface for tool implementations
//
// Call never returns an error. Provider errors, unknown tools and nil
// results are folded into a failed types.Result carrying an error code, so
// the transport only has to render it.
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(terminalProvider)
//	result := registry.Call(ctx, "execute_shell", params, appCtx)
package service
