package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewAnthropic_RequiresKey(t *testing.T) {
	if _, err := NewAnthropic(AnthropicConfig{APIKey: "  "}); err == nil {
		t.Error("NewAnthropic() error = nil, want missing key")
	}
}

func TestAnthropic_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}
		if r.Header.Get("Anthropic-Version") == "" {
			t.Error("Anthropic-Version header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "m",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "tu_1", "name": "concat", "input": {"x": "a", "y": "b"}}
			],
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`)
	}))
	defer srv.Close()

	client, err := NewAnthropic(AnthropicConfig{APIKey: "secret", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewAnthropic() error = %v", err)
	}
	resp, err := client.Complete(context.Background(), Request{
		Model:     DefaultModel,
		MaxTokens: DefaultMaxTokens,
		System:    "be brief",
		Messages: []Message{
			UserText("join a and b"),
			{Role: RoleAssistant, Content: []Block{ToolUseBlock("tu_0", "concat", json.RawMessage(`{"x":"a"}`))}},
			{Role: RoleUser, Content: []Block{ToolResultBlock("tu_0", "Error: missing y", true)}},
		},
		Tools: []Tool{{
			Name:        "concat",
			Description: "Join",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"x": map[string]any{"type": "string"}},
				"required":   []any{"x"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if got["model"] != DefaultModel || got["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("model = %v, max_tokens = %v", got["model"], got["max_tokens"])
	}
	if !strings.Contains(fmt.Sprint(got["system"]), "be brief") {
		t.Errorf("system = %v", got["system"])
	}
	tools, _ := got["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tools = %v", got["tools"])
	}
	schema, _ := tools[0].(map[string]any)["input_schema"].(map[string]any)
	if schema["type"] != "object" || fmt.Sprint(schema["required"]) != "[x]" {
		t.Errorf("input_schema = %v", schema)
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("messages = %v", got["messages"])
	}
	result := messages[2].(map[string]any)["content"].([]any)[0].(map[string]any)
	if result["type"] != "tool_result" || result["tool_use_id"] != "tu_0" || result["is_error"] != true {
		t.Errorf("tool_result = %v", result)
	}

	if text, ok := resp.FirstText(); !ok || text != "Let me check." {
		t.Errorf("FirstText() = %q, %v", text, ok)
	}
	if resp.ID != "msg_1" || resp.StopReason != "tool_use" || resp.Usage.OutputTokens != 7 {
		t.Errorf("resp = %+v", resp)
	}
	uses := resp.ToolUses()
	if len(uses) != 1 || uses[0].ID != "tu_1" || uses[0].Name != "concat" {
		t.Fatalf("ToolUses() = %+v", uses)
	}
	var input map[string]string
	if err := json.Unmarshal(uses[0].Input, &input); err != nil || input["x"] != "a" {
		t.Errorf("input = %s", uses[0].Input)
	}
}

func TestAnthropic_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   APIError
	}{
		{
			"structured",
			http.StatusBadRequest,
			`{"type":"error","error":{"type":"invalid_request_error","message":"bad tools"}}`,
			APIError{StatusCode: 400, Type: "invalid_request_error", Message: "bad tools"},
		},
		{"plain", http.StatusBadGateway, "upstream down", APIError{StatusCode: 502, Message: "Bad Gateway"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client, _ := NewAnthropic(AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := client.Complete(context.Background(), Request{Model: "m", MaxTokens: 1})
			var apiErr APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want APIError", err)
			}
			if apiErr != tt.want {
				t.Errorf("APIError = %+v, want %+v", apiErr, tt.want)
			}
		})
	}
}

func TestBlock_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  string
	}{
		{"text", TextBlock(""), `{"type":"text","text":""}`},
		{"tool use without input", ToolUseBlock("id1", "t", nil), `{"type":"tool_use","id":"id1","name":"t","input":{}}`},
		{"tool result", ToolResultBlock("id1", "a-b", false), `{"type":"tool_result","tool_use_id":"id1","content":"a-b"}`},
		{"tool error", ToolResultBlock("id1", "boom", true), `{"type":"tool_result","tool_use_id":"id1","content":"boom","is_error":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.block)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(raw) != tt.want {
				t.Errorf("Marshal() = %s, want %s", raw, tt.want)
			}
		})
	}
}

func TestUpstreamError(t *testing.T) {
	cause := APIError{StatusCode: 529, Message: "overloaded"}
	err := fmt.Errorf("turn: %w", &UpstreamError{Op: "initial", Model: "m", Err: cause})
	if !errors.Is(err, ErrUpstream) {
		t.Error("errors.Is(err, ErrUpstream) = false")
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 529 {
		t.Error("cause not reachable through UpstreamError")
	}
	if !strings.Contains(err.Error(), "initial request to m") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestModelFunc(t *testing.T) {
	var m Model = ModelFunc(func(_ context.Context, req Request) (Response, error) {
		return Response{Content: []Block{TextBlock(req.Model)}}, nil
	})
	resp, _ := m.Complete(context.Background(), Request{Model: "echo"})
	if text, _ := resp.FirstText(); text != "echo" {
		t.Errorf("FirstText() = %q", text)
	}
}
