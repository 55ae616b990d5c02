// Package chat implements the conversation orchestrator.
//
// Each query runs a bounded turn:
//
//	Idle → AwaitingModel → Idle                                   (no tool use)
//	Idle → AwaitingModel → ExecutingTools → AwaitingFollowUp → Idle
//
//  1. The query is appended to history as a user message.
//  2. One completion is requested with the full catalog as tools.
//  3. Response blocks are walked in order. Text is appended to the
//     transcript. Each tool_use block is coerced and executed synchronously,
//     in order, and recorded as "[Tool call: name]" / "Result: text".
//  4. If any tool ran, the assistant turn is echoed back with one
//     tool_result per invocation (same order, same ids) and exactly one
//     follow-up completion is requested without tools. Its first text block
//     ends the transcript.
//
// A failed tool call never aborts a turn: its error text becomes the
// tool_result content. Tool-use blocks in the follow-up response are not
// executed.
package chat
