// Package catalog builds and holds the tool descriptors advertised to the model.
//
// A [Catalog] is the immutable set of [Descriptor] values for one connected
// session. Catalogs are built once at connect time using one of two
// acquisition strategies:
//
//   - Live introspection: descriptors are copied from an MCP server's
//     tools/list response via [FromMCPTools].
//   - Static extraction: a tool-source file is scanned for annotated
//     asynchronous functions via [Extract].
//
// # Static Extraction Grammar
//
// Extraction is a best-effort text scan, not a parser. Python sources must
// match exactly:
//
//	@mcp.tool()
//	async def name(a: int, b: str) -> str:
//	    """First line becomes the description."""
//
// Script sources (.ts, .js) must match exactly:
//
//	// @tool
//	export async function name(a: int, b: str): str {
//	    /** First line becomes the description. */
//
// Anything else is invisible to extraction. Entries that match the pattern
// but are malformed (bad parameter names, duplicates) are skipped with a
// warning; extraction as a whole only fails when the file cannot be read.
//
// # Type Inference
//
// Declared parameter types are inferred by substring match on the
// annotation text: "float" → [TypeFloat], "int" → [TypeInteger],
// "bool" → [TypeBoolean], anything else → [TypeString].
//
// Descriptors built from a live server's tools/list ([FromMCPTools]) take
// their types from the input schema instead. Properties outside the
// schema's "required" list are [Param.Optional], and array, object or
// untyped properties are tagged [TypeAny] so their values are forwarded
// as sent.
//
// # Discovery
//
// [NewIndex] registers a catalog in a tooldiscovery BM25 index and tooldoc
// store so front-ends can search and describe tools.
package catalog
