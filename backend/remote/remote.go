// Package remote implements the remote-process backend: the tool source runs
// as an MCP server in a child process and calls travel over its standard
// streams.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/catalog"
)

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = commandTransport

// Config configures a remote-process backend.
type Config struct {
	// Runtimes maps a source extension to its runtime command.
	// Defaults to backend.DefaultRuntimes().
	Runtimes map[string]backend.Runtime

	// ClientName and ClientVersion identify this client in the handshake.
	ClientName    string
	ClientVersion string

	// Stderr receives the child's standard error. Nil discards it.
	Stderr io.Writer

	// Logger is an optional logger for lifecycle events.
	Logger backend.Logger
}

func (c *Config) applyDefaults() {
	if c.Runtimes == nil {
		c.Runtimes = backend.DefaultRuntimes()
	}
	if c.ClientName == "" {
		c.ClientName = "toolchat"
	}
	if c.ClientVersion == "" {
		c.ClientVersion = "dev"
	}
	if c.Logger == nil {
		c.Logger = backend.NopLogger{}
	}
}

// Backend implements backend.Backend over an MCP stdio session.
type Backend struct {
	cfg Config

	mu      sync.Mutex
	source  string
	session *mcp.ClientSession
	cancel  context.CancelFunc
	cat     *catalog.Catalog
	closed  bool
}

var _ backend.Backend = (*Backend)(nil)

// New creates an unconnected remote-process backend.
func New(cfg Config) *Backend {
	cfg.applyDefaults()
	return &Backend{cfg: cfg}
}

// Kind returns backend.KindRemote.
func (b *Backend) Kind() backend.Kind {
	return backend.KindRemote
}

// Connect resolves the runtime for source, spawns it, performs the MCP
// handshake and builds the catalog from the live tool list. Any failure
// releases the process before returning.
func (b *Backend) Connect(ctx context.Context, source string) (*catalog.Catalog, error) {
	rt, err := backend.ResolveRuntime(b.cfg.Runtimes, source)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, &backend.ConnectionError{Source: source, Op: "connect", Err: backend.ErrClosed}
	}
	if b.session != nil {
		return nil, &backend.ConnectionError{Source: source, Op: "connect", Err: backend.ErrAlreadyConnected}
	}
	if _, err := os.Stat(source); err != nil {
		return nil, &backend.ConnectionError{Source: source, Op: "stat", Err: err}
	}

	// The child outlives the connect call; it is tied to the backend instead.
	procCtx, cancel := context.WithCancel(context.Background())
	transport, err := transportBuilder(procCtx, rt, source, b.cfg.Stderr)
	if err != nil {
		cancel()
		return nil, &backend.ConnectionError{Source: source, Op: "spawn", Err: err}
	}

	client := mcp.NewClient(&mcp.Implementation{Name: b.cfg.ClientName, Version: b.cfg.ClientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		cancel()
		return nil, &backend.ConnectionError{Source: source, Op: "initialize", Err: err}
	}

	var tools []*mcp.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			cancel()
			return nil, &backend.ConnectionError{Source: source, Op: "list_tools", Err: err}
		}
		tools = append(tools, tool)
	}
	cat, err := catalog.FromMCPTools(tools)
	if err != nil {
		_ = session.Close()
		cancel()
		return nil, &backend.ConnectionError{Source: source, Op: "list_tools", Err: err}
	}

	b.source = source
	b.session = session
	b.cancel = cancel
	b.cat = cat
	b.cfg.Logger.Info("remote backend connected",
		"source", source, "command", rt.Command, "tools", cat.Len())
	return cat, nil
}

// Catalog returns the live catalog.
func (b *Backend) Catalog() *catalog.Catalog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cat
}

// Call forwards one tools/call and waits for its response. Calls are
// serialized; the transport never carries more than one request.
func (b *Backend) Call(ctx context.Context, name string, args map[string]any) (backend.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return backend.Result{}, backend.ErrClosed
	case b.session == nil:
		return backend.Result{}, backend.ErrNotConnected
	}
	if !b.cat.Has(name) {
		return backend.Result{}, backend.NewToolNotFound(name)
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := b.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return backend.Result{}, backend.NewToolExecution(name, err)
	}
	content := contentText(res.Content)
	if res.IsError {
		b.cfg.Logger.Warn("tool returned error", "tool", name)
		return backend.Result{}, backend.NewToolExecution(name, errors.New(strings.Join(content, "\n")))
	}
	return backend.Result{Value: res.StructuredContent, Content: content}, nil
}

// Cleanup closes the session and terminates the child. It is idempotent.
func (b *Backend) Cleanup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.session != nil {
		err = b.session.Close()
		b.session = nil
	}
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.cfg.Logger.Debug("remote backend closed", "source", b.source)
	return err
}

func commandTransport(ctx context.Context, rt backend.Runtime, source string, stderr io.Writer) (mcp.Transport, error) {
	if _, err := exec.LookPath(rt.Command); err != nil {
		return nil, err
	}
	// #nosec G204 -- command comes from the fixed runtime table
	cmd := exec.CommandContext(ctx, rt.Command, rt.Argv(source)...)
	cmd.Env = append(os.Environ(), rt.Env...)
	cmd.Stderr = stderr
	return &mcp.CommandTransport{Command: cmd}, nil
}

func contentText(content []mcp.Content) []string {
	out := make([]string, 0, len(content))
	for _, c := range content {
		if text, ok := c.(*mcp.TextContent); ok {
			out = append(out, text.Text)
			continue
		}
		raw, err := json.Marshal(c)
		if err != nil {
			continue
		}
		out = append(out, string(raw))
	}
	return out
}
