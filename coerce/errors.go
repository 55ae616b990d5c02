package coerce

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolchat/catalog"
)

// Sentinel errors for error classification.
var (
	// ErrArgumentParse indicates that textual arguments were not a JSON object.
	ErrArgumentParse = errors.New("argument parse error")

	// ErrMissingParameter indicates that declared parameters were absent.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrTypeCoercion indicates that a value could not be converted to its
	// declared type.
	ErrTypeCoercion = errors.New("type coercion error")
)

// ArgumentParseError reports malformed serialized arguments.
type ArgumentParseError struct {
	// Text is the original argument text.
	Text string

	Err error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("cannot parse arguments %q: %v", e.Text, e.Err)
}

func (e *ArgumentParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrArgumentParse.
func (e *ArgumentParseError) Is(target error) bool {
	return target == ErrArgumentParse
}

// MissingParameterError lists every declared parameter absent from a call.
type MissingParameterError struct {
	Tool  string
	Names []string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("tool %s: missing required parameters: %s",
		e.Tool, strings.Join(e.Names, ", "))
}

// Is reports whether target is ErrMissingParameter.
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// TypeCoercionError names the parameter that could not be converted.
type TypeCoercionError struct {
	Tool  string
	Param string
	Type  catalog.ParamType
	Value any
	Err   error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("tool %s: parameter %s: cannot convert %v (%T) to %s: %v",
		e.Tool, e.Param, e.Value, e.Value, e.Type, e.Err)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTypeCoercion.
func (e *TypeCoercionError) Is(target error) bool {
	return target == ErrTypeCoercion
}
