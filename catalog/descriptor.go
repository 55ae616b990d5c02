package catalog

import (
	"strings"
)

// ParamType is the declared type tag of a tool parameter.
type ParamType string

// Supported parameter type tags.
const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"

	// TypeAny marks a live schema property whose type is not one of the
	// scalar tags (array, object, or untyped). Values pass through as sent.
	TypeAny ParamType = "any"
)

// InferType maps a textual type annotation to a type tag.
// Matching is by substring and checked in order: float, int, bool.
func InferType(annotation string) ParamType {
	switch {
	case strings.Contains(annotation, "float"):
		return TypeFloat
	case strings.Contains(annotation, "int"):
		return TypeInteger
	case strings.Contains(annotation, "bool"):
		return TypeBoolean
	default:
		return TypeString
	}
}

// JSONType returns the JSON Schema type name for the tag.
func (t ParamType) JSONType() string {
	switch t {
	case TypeFloat:
		return "number"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// FromJSONType maps a JSON Schema type name back to a type tag. Types
// outside the scalar set map to [TypeAny].
func FromJSONType(schemaType string) ParamType {
	switch schemaType {
	case "string":
		return TypeString
	case "number":
		return TypeFloat
	case "integer":
		return TypeInteger
	case "boolean":
		return TypeBoolean
	default:
		return TypeAny
	}
}

// Param is one declared parameter of a tool.
type Param struct {
	// Name is the parameter name as declared in the source or schema.
	Name string `yaml:"name" json:"name"`

	// Type is the inferred type tag.
	Type ParamType `yaml:"type" json:"type"`

	// Annotation is the raw annotation text, when extracted statically.
	Annotation string `yaml:"annotation,omitempty" json:"annotation,omitempty"`

	// Optional is set for live schema properties absent from "required".
	// Extracted parameters are always required.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// Descriptor describes one tool. Params are ordered as declared; the order is
// the positional binding used by the in-process backend.
type Descriptor struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Params      []Param `yaml:"params" json:"params"`

	// Returns is the declared return type annotation, if any.
	Returns string `yaml:"returns,omitempty" json:"returns,omitempty"`

	// Schema is the input schema reported by a live server. When nil,
	// InputSchema derives one from Params.
	Schema map[string]any `yaml:"-" json:"-"`
}

// Param returns the declared parameter with the given name.
func (d Descriptor) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ParamNames returns parameter names in declaration order.
func (d Descriptor) ParamNames() []string {
	out := make([]string, len(d.Params))
	for i, p := range d.Params {
		out[i] = p.Name
	}
	return out
}

// Signature renders the descriptor as a compact call signature.
func (d Descriptor) Signature() string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Optional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(string(p.Type))
	}
	b.WriteByte(')')
	if d.Returns != "" {
		b.WriteString(" -> ")
		b.WriteString(d.Returns)
	}
	return b.String()
}

// InputSchema returns the JSON Schema advertised to the model. Live schemas
// are returned as reported; other descriptors get an object schema listing
// the non-optional parameters as required.
func (d Descriptor) InputSchema() map[string]any {
	if d.Schema != nil {
		return cloneMap(d.Schema)
	}
	props := make(map[string]any, len(d.Params))
	required := make([]any, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{}
		if p.Type != TypeAny {
			prop["type"] = p.Type.JSONType()
		}
		props[p.Name] = prop
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func (d Descriptor) clone() Descriptor {
	out := d
	out.Params = append([]Param(nil), d.Params...)
	if d.Schema != nil {
		out.Schema = cloneMap(d.Schema)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// firstLine returns the first non-blank line of a doc block, with comment
// decoration stripped.
func firstLine(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
