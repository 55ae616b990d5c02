package backend

import (
	"context"
	"strings"

	"github.com/jonwraymond/toolchat/catalog"
	"github.com/jonwraymond/toolchat/coerce"
)

// Kind identifies a backend variant.
type Kind string

// Backend variants.
const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
)

// Backend executes the tools of one connected tool source.
//
// Contract:
// - Lifecycle: Connect is called at most once; Call requires a successful
// Connect; Cleanup is idempotent and leaves the backend unusable.
// - Concurrency: implementations must be safe for concurrent use, but only
// one call is in flight at a time.
// - Errors: Connect returns *ConnectionError; Call returns *ToolError
// matching ErrToolNotFound or ErrToolExecution, or ErrNotConnected/ErrClosed.
type Backend interface {
	// Kind returns the backend variant.
	Kind() Kind

	// Connect opens the tool source and builds its catalog.
	Connect(ctx context.Context, source string) (*catalog.Catalog, error)

	// Catalog returns the catalog built by Connect, or nil before it.
	Catalog() *catalog.Catalog

	// Call invokes the named tool with coerced arguments.
	Call(ctx context.Context, name string, args map[string]any) (Result, error)

	// Cleanup releases the process, transport or loaded unit.
	Cleanup() error
}

// Result is the outcome of a successful tool call.
type Result struct {
	// Value is the function's return value (in-process calls).
	Value any

	// Content holds the text content blocks of a protocol response.
	Content []string
}

// Text renders the result as the text fed back to the model.
func (r Result) Text() string {
	if len(r.Content) > 0 {
		return strings.Join(r.Content, "\n")
	}
	if r.Value == nil {
		return ""
	}
	s, err := coerce.Value(catalog.TypeString, r.Value)
	if err != nil {
		return ""
	}
	return s.(string)
}
