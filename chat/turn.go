package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolchat/backend"
)

// Transcript markers.
const (
	toolCallMarker = "[Tool call: %s]"
	resultMarker   = "Result: %s"
)

// Invocation is one tool-use block resolved during a turn.
type Invocation struct {
	// Index is the position among the turn's invocations.
	Index int

	// ID is the model's tool_use id, echoed in the tool_result.
	ID   string
	Name string

	// Input is the raw argument JSON from the model.
	Input json.RawMessage

	// Args are the coerced arguments, nil when coercion failed.
	Args map[string]any

	Result backend.Result
	Err    error
}

// Output is the text fed back to the model: the result, or the error text.
func (i Invocation) Output() string {
	if i.Err != nil {
		return "Error: " + i.Err.Error()
	}
	return i.Result.Text()
}

// Turn is the outcome of one query.
type Turn struct {
	Query string

	// Transcript holds text blocks and tool markers in response order,
	// followed by the follow-up text.
	Transcript []string

	Invocations []Invocation

	// FollowUp is the first text block of the follow-up response.
	FollowUp string
}

// Text joins the transcript for display.
func (t Turn) Text() string {
	return strings.Join(t.Transcript, "\n")
}

// UsedTools reports whether any tool was invoked.
func (t Turn) UsedTools() bool {
	return len(t.Invocations) > 0
}

func toolCallLine(name string) string { return fmt.Sprintf(toolCallMarker, name) }

func resultLine(output string) string { return fmt.Sprintf(resultMarker, output) }
