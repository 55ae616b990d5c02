package llm

import (
	"errors"
	"fmt"
)

// ErrUpstream classifies failures of the upstream model API.
var ErrUpstream = errors.New("upstream model error")

// UpstreamError wraps a failed completion with the turn step that issued it.
type UpstreamError struct {
	// Op is the request that failed ("initial" or "follow-up").
	Op    string
	Model string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request to %s: %v", e.Op, e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// APIError is a non-2xx response from the Messages API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("anthropic api status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("anthropic api status %d: %s", e.StatusCode, e.Message)
}
