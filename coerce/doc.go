// Package coerce normalizes raw tool-call arguments against a tool descriptor.
//
// [Arguments] accepts either a structured name→value map or a single
// serialized JSON object, and returns a map in which every declared parameter
// holds a value of its declared type:
//
//   - float   → float64
//   - integer → int64 (numeric parse, then truncate toward zero)
//   - boolean → bool ("true", "yes", "1", "y" in any case are true; any other
//     string is false)
//   - string  → string
//
// Coercion is all-or-nothing: the first parameter that cannot be converted
// fails the whole call with a [TypeCoercionError]. Once every present
// parameter is converted, all absent ones are reported together in a single
// [MissingParameterError]. Undeclared arguments are dropped.
//
// Coercion is idempotent: passing the result back through [Arguments]
// returns an equal map.
package coerce
