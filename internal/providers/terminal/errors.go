package terminal

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/types"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timed out")
	ErrProcessTerminated = errors.New("process terminated")
	ErrLimitReached      = errors.New("limit reached")
)

// ToolError is a failure reported back to the caller. Detail is the text the
// caller sees; Kind is one of the sentinels above.
type ToolError struct {
	Op     string
	Kind   error
	Detail string
	Err    error
}

func (e *ToolError) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code maps the error kind to a result code
func (e *ToolError) Code() types.ErrorCode {
	return codeFor(e.Kind)
}

func codeFor(kind error) types.ErrorCode {
	switch {
	case errors.Is(kind, ErrInvalidInput):
		return types.CodeInvalidParams
	case errors.Is(kind, ErrNotFound):
		return types.CodeNotFound
	case errors.Is(kind, ErrTimeout),
		errors.Is(kind, ErrProcessTerminated),
		errors.Is(kind, ErrLimitReached):
		return types.CodeExecution
	default:
		return types.CodeInternal
	}
}

func invalidInput(op, format string, args ...interface{}) *ToolError {
	return &ToolError{Op: op, Kind: ErrInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...interface{}) *ToolError {
	return &ToolError{Op: op, Kind: ErrNotFound, Detail: fmt.Sprintf(format, args...)}
}

// ExecError is a command that ran but did not succeed: a nonzero exit
// status or a timeout.
type ExecError struct {
	ExitCode int
	Output   string
	TimedOut bool
	Timeout  time.Duration
}

func (e *ExecError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("Command timed out after %dms", e.Timeout.Milliseconds())
	}
	return fmt.Sprintf("Command failed with exit code %d\n%s", e.ExitCode, e.Output)
}

func (e *ExecError) Unwrap() error {
	if e.TimedOut {
		return ErrTimeout
	}
	return nil
}

// Code reports execution errors
func (e *ExecError) Code() types.ErrorCode {
	return types.CodeExecution
}
