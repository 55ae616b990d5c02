// Package llm defines the upstream model boundary: fixed tagged wire types
// and a Messages API client.
//
// Responses are ordered content blocks tagged text or tool_use; requests
// carry the message history and optional tool declarations. [Anthropic]
// maps them onto the official anthropic-sdk-go Messages client; tests and
// offline front-ends can supply any [Model], for example a [ModelFunc].
package llm
