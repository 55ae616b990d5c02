package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Errors returned while building a catalog.
var (
	ErrDuplicateTool = errors.New("duplicate tool name")
	ErrInvalidTool   = errors.New("invalid tool descriptor")
)

// Catalog is the set of tool descriptors for one connected session.
//
// Contract:
// - Immutability: a Catalog is never mutated after New returns.
// - Concurrency: safe for concurrent readers.
// - Ownership: accessors return copies; callers may modify them freely.
type Catalog struct {
	order []string
	tools map[string]Descriptor
}

// New builds a catalog from descriptors, preserving their order.
// Names must be non-empty and unique.
func New(descs ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(descs)),
		tools: make(map[string]Descriptor, len(descs)),
	}
	for _, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidTool)
		}
		if _, ok := c.tools[d.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
		}
		c.tools[d.Name] = d.clone()
		c.order = append(c.order, d.Name)
	}
	return c, nil
}

// Empty returns a catalog with no tools.
func Empty() *Catalog {
	return &Catalog{tools: map[string]Descriptor{}}
}

// Get returns the descriptor for name.
func (c *Catalog) Get(name string) (Descriptor, bool) {
	if c == nil {
		return Descriptor{}, false
	}
	d, ok := c.tools[name]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.tools[name]
	return ok
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Names returns tool names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// SortedNames returns tool names sorted alphabetically.
func (c *Catalog) SortedNames() []string {
	names := c.Names()
	sort.Strings(names)
	return names
}

// Descriptors returns copies of every descriptor in catalog order.
func (c *Catalog) Descriptors() []Descriptor {
	if c == nil {
		return nil
	}
	out := make([]Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tools[name].clone())
	}
	return out
}

// ModelTools exports the catalog as toolfoundation tools under namespace.
func (c *Catalog) ModelTools(namespace string) []model.Tool {
	descs := c.Descriptors()
	out := make([]model.Tool, 0, len(descs))
	for _, d := range descs {
		out = append(out, model.Tool{
			Tool: mcp.Tool{
				Name:        d.Name,
				Description: d.Description,
				InputSchema: d.InputSchema(),
			},
			Namespace: namespace,
		})
	}
	return out
}
