package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"

	"github.com/jonwraymond/toolchat/catalog"
)

var (
	errNull      = errors.New("null value")
	errNotFinite = errors.New("not a finite number")
	errRange     = errors.New("out of integer range")

	fold      = cases.Fold()
	trueWords = map[string]bool{"true": true, "yes": true, "1": true, "y": true}
)

// Arguments coerces raw call arguments against desc.
//
// raw may be nil, a map[string]any, or JSON text (string, []byte or
// json.RawMessage). Text that decodes to a JSON string is parsed again as
// the argument object. Any other value is round-tripped through JSON.
// Empty text is treated as an empty object. Optional parameters may be
// absent or null.
func Arguments(desc catalog.Descriptor, raw any) (map[string]any, error) {
	in, err := decode(raw)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(desc.Params))
	for _, p := range desc.Params {
		v, ok := in[p.Name]
		if !ok || (v == nil && p.Optional) {
			continue
		}
		cv, err := Value(p.Type, v)
		if err != nil {
			return nil, &TypeCoercionError{
				Tool:  desc.Name,
				Param: p.Name,
				Type:  p.Type,
				Value: v,
				Err:   err,
			}
		}
		out[p.Name] = cv
	}

	var missing []string
	for _, p := range desc.Params {
		if _, ok := out[p.Name]; !ok && !p.Optional {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Tool: desc.Name, Names: missing}
	}
	return out, nil
}

// Positional returns coerced arguments ordered by the descriptor's parameters.
func Positional(desc catalog.Descriptor, args map[string]any) []any {
	out := make([]any, len(desc.Params))
	for i, p := range desc.Params {
		out[i] = args[p.Name]
	}
	return out
}

// Value converts v to the Go representation of t. [catalog.TypeAny] values
// are returned unchanged.
func Value(t catalog.ParamType, v any) (any, error) {
	switch t {
	case catalog.TypeAny:
		return v, nil
	case catalog.TypeFloat:
		return toFloat(v)
	case catalog.TypeInteger:
		return toInteger(v)
	case catalog.TypeBoolean:
		return toBoolean(v), nil
	default:
		return toString(v)
	}
}

func decode(raw any) (map[string]any, error) {
	var text string
	switch r := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return r, nil
	case string:
		text = r
	case []byte:
		text = string(r)
	case json.RawMessage:
		text = string(r)
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return nil, &ArgumentParseError{Text: fmt.Sprint(r), Err: err}
		}
		text = string(b)
	}

	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		// A JSON string holding the serialized object.
		var inner string
		if json.Unmarshal([]byte(text), &inner) != nil {
			return nil, &ArgumentParseError{Text: text, Err: err}
		}
		return decode(inner)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	if v == nil {
		return 0, errNull
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func toInteger(v any) (int64, error) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return cast.ToInt64E(n)
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errRange
	}
	return int64(f), nil
}

func toBoolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return trueWords[fold.String(strings.TrimSpace(b))]
	case nil:
		return false
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0
	}
	return !isEmpty(v)
}

func toString(v any) (string, error) {
	if v == nil {
		return "", errNull
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// isEmpty mirrors truthiness for containers.
func isEmpty(v any) bool {
	switch c := v.(type) {
	case []any:
		return len(c) == 0
	case map[string]any:
		return len(c) == 0
	default:
		return false
	}
}
