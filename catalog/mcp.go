package catalog

import (
	"encoding/json"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FromMCPTool converts a tool advertised by a live MCP server. The server's
// input schema is kept verbatim for the model request; parameters are
// derived from it with required ones first. Properties missing from
// "required" are optional, and non-scalar types are passed through
// uncoerced.
func FromMCPTool(t *mcp.Tool) Descriptor {
	schema := schemaMap(t.InputSchema)
	return Descriptor{
		Name:        t.Name,
		Description: t.Description,
		Params:      paramsFromSchema(schema),
		Schema:      schema,
	}
}

// FromMCPTools converts a tools/list response into a catalog.
func FromMCPTools(tools []*mcp.Tool) (*Catalog, error) {
	descs := make([]Descriptor, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		descs = append(descs, FromMCPTool(t))
	}
	return New(descs...)
}

// schemaMap normalizes whatever the SDK decoded into a generic map.
func schemaMap(schema any) map[string]any {
	switch s := schema.(type) {
	case nil:
		return map[string]any{"type": "object"}
	case map[string]any:
		return s
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{"type": "object"}
	}
	return out
}

func paramsFromSchema(schema map[string]any) []Param {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}

	required := make(map[string]bool)
	var order []string
	for _, name := range stringList(schema["required"]) {
		if _, exists := props[name]; exists && !required[name] {
			required[name] = true
			order = append(order, name)
		}
	}
	var optional []string
	for name := range props {
		if !required[name] {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	order = append(order, optional...)

	params := make([]Param, 0, len(order))
	for _, name := range order {
		var schemaType string
		if prop, ok := props[name].(map[string]any); ok {
			schemaType, _ = prop["type"].(string)
		}
		params = append(params, Param{
			Name:       name,
			Type:       FromJSONType(schemaType),
			Annotation: schemaType,
			Optional:   !required[name],
		})
	}
	return params
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
