package backend

import (
	"errors"
	"fmt"
)

// Common errors for backend operations.
var (
	ErrConnection        = errors.New("connection error")
	ErrUnsupportedSource = errors.New("unsupported tool source")
	ErrAlreadyConnected  = errors.New("backend already connected")
	ErrNotConnected      = errors.New("backend not connected")
	ErrClosed            = errors.New("backend closed")
	ErrToolNotFound      = errors.New("tool not found")
	ErrToolExecution     = errors.New("tool execution error")
)

// ConnectionError reports a failed Connect. The session stays unconnected.
type ConnectionError struct {
	// Source is the tool-source reference passed to Connect.
	Source string

	// Op is the connect step that failed (resolve, stat, spawn, initialize,
	// list_tools, extract).
	Op string

	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// ToolError reports a failed call of one tool.
type ToolError struct {
	Tool string

	// Kind is ErrToolNotFound or ErrToolExecution.
	Kind error

	Err error
}

// NewToolNotFound returns a ToolError for a name absent from the catalog.
func NewToolNotFound(tool string) *ToolError {
	return &ToolError{Tool: tool, Kind: ErrToolNotFound}
}

// NewToolExecution returns a ToolError for a tool that raised.
func NewToolExecution(tool string, err error) *ToolError {
	return &ToolError{Tool: tool, Kind: ErrToolExecution, Err: err}
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tool %s: %v", e.Tool, e.Kind)
	}
	return fmt.Sprintf("tool %s: %v: %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is reports whether target is the error's kind.
func (e *ToolError) Is(target error) bool {
	return target == e.Kind
}
