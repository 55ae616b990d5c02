package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Defaults for the Anthropic Messages API.
const (
	DefaultModel      = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens  = 1000
	DefaultBaseURL    = "https://api.anthropic.com"
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 2
)

// AnthropicConfig configures the Messages API client.
type AnthropicConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient replaces the SDK's default client.
	HTTPClient *http.Client

	// Timeout bounds each request attempt. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the SDK retry budget for 408/409/429/5xx responses.
	// Zero disables retries.
	MaxRetries int

	// UserAgent is sent with every request.
	UserAgent string
}

// Anthropic implements Model over the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
}

var _ Model = (*Anthropic)(nil)

// NewAnthropic builds a Messages API client.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "toolchat"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL + "/"),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
		option.WithHeader("User-Agent", userAgent),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}, nil
}

// Complete performs one blocking Messages API call.
func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	msg, err := a.client.Messages.New(ctx, messageParams(req))
	if err != nil {
		return Response{}, apiError(err)
	}
	return fromMessage(msg)
}

func messageParams(req Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(req.Messages)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, m := range req.Messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				input := b.Input
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			}
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(m.Role),
			Content: blocks,
		})
	}
	for _, t := range req.Tools {
		tool := anthropic.ToolParam{
			Name:        t.Name,
			InputSchema: inputSchema(t.InputSchema),
		}
		if t.Description != "" {
			tool.Description = anthropic.String(t.Description)
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return params
}

// inputSchema carries every schema keyword besides type and properties as
// an extra field so live schemas reach the API unchanged.
func inputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	out := anthropic.ToolInputSchemaParam{Properties: schema["properties"]}
	for k, v := range schema {
		if k == "type" || k == "properties" {
			continue
		}
		if out.ExtraFields == nil {
			out.ExtraFields = make(map[string]any)
		}
		out.ExtraFields[k] = v
	}
	return out
}

func fromMessage(msg *anthropic.Message) (Response, error) {
	out := Response{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Role:       RoleAssistant,
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	for _, b := range msg.Content {
		switch BlockType(b.Type) {
		case BlockText:
			out.Content = append(out.Content, TextBlock(b.Text))
		case BlockToolUse:
			input, err := json.Marshal(b.Input)
			if err != nil {
				return Response{}, err
			}
			out.Content = append(out.Content, ToolUseBlock(b.ID, b.Name, input))
		}
	}
	return out, nil
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// apiError maps SDK status errors to APIError; other failures pass through.
func apiError(err error) error {
	var sdkErr *anthropic.Error
	if !errors.As(err, &sdkErr) {
		return err
	}
	out := APIError{StatusCode: sdkErr.StatusCode, Message: http.StatusText(sdkErr.StatusCode)}
	var body errorResponse
	if raw := sdkErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &body) == nil && body.Error.Message != "" {
		out.Type, out.Message = body.Error.Type, body.Error.Message
	}
	return out
}
