// Package stdio serves the service registry to an MCP client over standard
// input and output.
//
// Every tool in the registry becomes an MCP tool whose input schema is
// derived from its parameter list. A call is forwarded to the registry with
// a fresh call ID; the registry's result becomes text content, with failures
// rendered as "Error: <message>" and isError set. Protocol framing,
// tools/list and panic recovery are handled by mcp-go.
//
// Standard output belongs to the protocol. Nothing else may write to it.
package stdio
