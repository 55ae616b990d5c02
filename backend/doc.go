// Package backend defines the execution backend capability shared by the
// remote-process and in-process variants.
//
// A [Backend] is a closed two-variant abstraction:
//
//   - [KindRemote]: spawns a child process for the tool source and talks MCP
//     over its standard streams (package backend/remote).
//   - [KindLocal]: loads the tool source in-process and invokes functions by
//     name (package backend/local).
//
// Callers pick the variant once, at construction. Beyond that choice both
// expose identical semantics:
//
//	b := local.New(local.Config{})
//	cat, err := b.Connect(ctx, "tools/concat.ts")
//	res, err := b.Call(ctx, "concat", map[string]any{"x": "a", "y": "b"})
//	defer b.Cleanup()
//
// # Runtimes
//
// The remote variant maps a tool-source extension to exactly one runtime
// command ([DefaultRuntimes]). An unrecognized extension fails with a
// [ConnectionError] wrapping [ErrUnsupportedSource] before anything is
// spawned or read.
//
// # Errors
//
// Connect failures are [ConnectionError] values. Call failures are
// [ToolError] values matching [ErrToolNotFound] or [ErrToolExecution].
// Use errors.Is for classification.
package backend
