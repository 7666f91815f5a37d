package types

// Category represents service categories
type Category string

const (
	CategorySystem  Category = "system"
	CategoryStorage Category = "storage"
)

// Service represents a service definition
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool represents a service tool. ID is the externally visible tool name.
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// ParamType is the JSON type of a tool parameter
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
)

// Parameter represents a tool parameter
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
}

// Context carries per-call metadata into providers
type Context struct {
	CallID string `json:"call_id,omitempty"`
}

// ErrorCode classifies a failed tool call
type ErrorCode string

const (
	CodeInvalidParams ErrorCode = "invalid_params"
	CodeNotFound      ErrorCode = "not_found"
	CodeExecution     ErrorCode = "execution"
	CodeInternal      ErrorCode = "internal"
)

// Result represents a tool call result. Text is what the caller sees.
type Result struct {
	Success bool      `json:"success"`
	Text    string    `json:"text,omitempty"`
	Error   *string   `json:"error,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

// TextResult builds a successful text result
func TextResult(text string) *Result {
	return &Result{Success: true, Text: text}
}

// ErrorResult builds a failed result
func ErrorResult(code ErrorCode, msg string) *Result {
	return &Result{Success: false, Error: &msg, Code: code}
}
