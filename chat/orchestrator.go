package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/catalog"
	"github.com/jonwraymond/toolchat/coerce"
	"github.com/jonwraymond/toolchat/llm"
)

// ErrConfiguration indicates an invalid or incomplete configuration.
var ErrConfiguration = errors.New("configuration error")

// Executor runs tools for the orchestrator. *session.Session satisfies it.
type Executor interface {
	Catalog() *catalog.Catalog
	Call(ctx context.Context, name string, args map[string]any) (backend.Result, error)
}

// Logger is the structured logger the orchestrator reports to.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for an Orchestrator.
type Config struct {
	// Model is the upstream completion service.
	// Required.
	Model llm.Model

	// Executor runs tool calls.
	// Required.
	Executor Executor

	// ModelID is sent with every request. Defaults to llm.DefaultModel.
	ModelID string

	// MaxTokens bounds each completion. Defaults to llm.DefaultMaxTokens.
	MaxTokens int

	// System is an optional system prompt.
	System string

	// Listener observes state transitions.
	Listener StateListener

	Logger Logger
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Model == nil {
		missing = append(missing, "Model")
	}
	if c.Executor == nil {
		missing = append(missing, "Executor")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: MaxTokens must not be negative", ErrConfiguration)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ModelID == "" {
		c.ModelID = llm.DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = llm.DefaultMaxTokens
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
}

// Orchestrator drives the per-query turn: one model request with tools,
// sequential tool execution, then at most one follow-up request.
//
// Contract:
// - Concurrency: one Process runs at a time; concurrent callers queue.
// - Errors: call-scoped failures become tool_result text; only upstream
// model failures end a turn early, as *llm.UpstreamError.
type Orchestrator struct {
	cfg Config

	mu      sync.Mutex
	state   State
	history []llm.Message
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Orchestrator{cfg: cfg, state: StateIdle}, nil
}

// Process runs one query to completion.
//
// On an upstream failure the partial turn is returned with the error; the
// query stays in history.
func (o *Orchestrator) Process(ctx context.Context, query string) (Turn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	turn := Turn{Query: query}
	user := llm.UserText(query)
	o.history = append(o.history, user)

	cat := o.cfg.Executor.Catalog()
	o.transition(StateAwaitingModel, "query received")
	resp, err := o.cfg.Model.Complete(ctx, o.request([]llm.Message{user}, tools(cat)))
	if err != nil {
		o.transition(StateIdle, "model request failed")
		o.cfg.Logger.Error("model request failed", "op", "initial", "error", err)
		return turn, &llm.UpstreamError{Op: "initial", Model: o.cfg.ModelID, Err: err}
	}
	assistant := llm.Message{Role: llm.RoleAssistant, Content: resp.Content}
	o.history = append(o.history, assistant)

	var results []llm.Block
	for _, block := range resp.Content {
		switch block.Type {
		case llm.BlockText:
			turn.Transcript = append(turn.Transcript, block.Text)
		case llm.BlockToolUse:
			if len(turn.Invocations) == 0 {
				o.transition(StateExecutingTools, "tool use requested")
			}
			inv := o.invoke(ctx, cat, len(turn.Invocations), block)
			turn.Invocations = append(turn.Invocations, inv)
			turn.Transcript = append(turn.Transcript, toolCallLine(inv.Name), resultLine(inv.Output()))
			results = append(results, llm.ToolResultBlock(inv.ID, inv.Output(), inv.Err != nil))
		}
	}

	if len(turn.Invocations) == 0 {
		o.transition(StateIdle, "no tool use")
		return turn, nil
	}

	toolResults := llm.Message{Role: llm.RoleUser, Content: results}
	o.history = append(o.history, toolResults)

	o.transition(StateAwaitingFollowUp, "tool results ready")
	follow, err := o.cfg.Model.Complete(ctx, o.request([]llm.Message{user, assistant, toolResults}, nil))
	if err != nil {
		o.transition(StateIdle, "follow-up request failed")
		o.cfg.Logger.Error("model request failed", "op", "follow-up", "error", err)
		return turn, &llm.UpstreamError{Op: "follow-up", Model: o.cfg.ModelID, Err: err}
	}
	o.history = append(o.history, llm.Message{Role: llm.RoleAssistant, Content: follow.Content})
	if text, ok := follow.FirstText(); ok {
		turn.FollowUp = text
		turn.Transcript = append(turn.Transcript, text)
	}
	if len(follow.ToolUses()) > 0 {
		o.cfg.Logger.Warn("follow-up requested more tools; not executed",
			"tool_uses", len(follow.ToolUses()))
	}
	o.transition(StateIdle, "turn complete")
	return turn, nil
}

// invoke resolves one tool_use block. Failures are recorded on the
// invocation, never returned.
func (o *Orchestrator) invoke(ctx context.Context, cat *catalog.Catalog, index int, block llm.Block) Invocation {
	inv := Invocation{Index: index, ID: block.ID, Name: block.Name, Input: block.Input}

	desc, ok := cat.Get(block.Name)
	if !ok {
		inv.Err = backend.NewToolNotFound(block.Name)
		o.cfg.Logger.Warn("tool not in catalog", "tool", block.Name, "id", block.ID)
		return inv
	}
	args, err := coerce.Arguments(desc, block.Input)
	if err != nil {
		inv.Err = err
		o.cfg.Logger.Warn("tool arguments rejected", "tool", block.Name, "id", block.ID, "error", err)
		return inv
	}
	inv.Args = args

	start := time.Now()
	res, err := o.cfg.Executor.Call(ctx, block.Name, args)
	if err != nil {
		inv.Err = err
		o.cfg.Logger.Warn("tool call failed", "tool", block.Name, "id", block.ID, "error", err)
		return inv
	}
	inv.Result = res
	o.cfg.Logger.Info("tool call", "tool", block.Name, "id", block.ID, "duration", time.Since(start))
	return inv
}

func (o *Orchestrator) request(messages []llm.Message, tools []llm.Tool) llm.Request {
	return llm.Request{
		Model:     o.cfg.ModelID,
		MaxTokens: o.cfg.MaxTokens,
		System:    o.cfg.System,
		Messages:  messages,
		Tools:     tools,
	}
}

// transition must be called with o.mu held.
func (o *Orchestrator) transition(to State, reason string) {
	from := o.state
	if !transitionValid(from, to) {
		o.cfg.Logger.Error("state machine violation", "error", &InvalidTransitionError{From: from, To: to})
	}
	o.state = to
	o.cfg.Logger.Debug("state change", "from", from.String(), "to", to.String(), "reason", reason)
	if o.cfg.Listener != nil {
		o.cfg.Listener.OnStateChange(StateChange{From: from, To: to, Reason: reason, Timestamp: time.Now()})
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns a copy of the accumulated conversation.
func (o *Orchestrator) History() []llm.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]llm.Message, len(o.history))
	for i, m := range o.history {
		out[i] = llm.Message{Role: m.Role, Content: append([]llm.Block(nil), m.Content...)}
	}
	return out
}

// Reset clears the history.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
}

func tools(cat *catalog.Catalog) []llm.Tool {
	descs := cat.Descriptors()
	if len(descs) == 0 {
		return nil
	}
	out := make([]llm.Tool, 0, len(descs))
	for _, d := range descs {
		out = append(out, llm.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema(),
		})
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
