package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/toolserver"
)

const toolsTS = `// @tool
export async function concat(x: str, y: str): str {
  /** Join two strings with a hyphen. */
  return x + "-" + y;
}

// @tool
export async function explode(reason: str): str {
  /** Always fails. */
  throw new Error(reason);
}
`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.ts")
	if err := os.WriteFile(path, []byte(toolsTS), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// serveInMemory points transportBuilder at an in-memory toolserver for source.
func serveInMemory(t *testing.T, source string, calls *atomic.Int32) {
	t.Helper()
	srv, err := toolserver.New(context.Background(), source, toolserver.Options{})
	if err != nil {
		t.Fatalf("toolserver.New() error = %v", err)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		session, err := srv.Connect(ctx, serverTransport)
		if err != nil {
			return
		}
		<-ctx.Done()
		_ = session.Close()
	}()

	original := transportBuilder
	transportBuilder = func(context.Context, backend.Runtime, string, io.Writer) (mcp.Transport, error) {
		if calls != nil {
			calls.Add(1)
		}
		return clientTransport, nil
	}
	t.Cleanup(func() {
		transportBuilder = original
		cancel()
		<-done
		_ = srv.Close()
	})
}

func connect(t *testing.T) *Backend {
	t.Helper()
	source := writeSource(t)
	serveInMemory(t, source, nil)
	b := New(Config{})
	if _, err := b.Connect(context.Background(), source); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Cleanup() })
	return b
}

func TestRemoteBackend_Interface(t *testing.T) {
	var _ backend.Backend = (*Backend)(nil)
	if New(Config{}).Kind() != backend.KindRemote {
		t.Error("Kind() != KindRemote")
	}
}

func TestRemoteBackend_ConnectListsTools(t *testing.T) {
	b := connect(t)
	cat := b.Catalog()
	if cat.Len() != 2 {
		t.Fatalf("catalog has %d tools, want 2", cat.Len())
	}
	d, ok := cat.Get("concat")
	if !ok {
		t.Fatal("concat missing from live catalog")
	}
	if d.Description != "Join two strings with a hyphen." {
		t.Errorf("Description = %q", d.Description)
	}
	if names := d.ParamNames(); len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Errorf("ParamNames() = %v, want [x y]", names)
	}
}

func TestRemoteBackend_CallRoundTrip(t *testing.T) {
	b := connect(t)
	res, err := b.Call(context.Background(), "concat", map[string]any{"x": "a", "y": "b"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Text() != "a-b" {
		t.Errorf("Text() = %q, want %q", res.Text(), "a-b")
	}
}

func TestRemoteBackend_CallErrors(t *testing.T) {
	b := connect(t)
	ctx := context.Background()

	_, err := b.Call(ctx, "explode", map[string]any{"reason": "kaboom"})
	if !errors.Is(err, backend.ErrToolExecution) || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("explode error = %v, want execution error mentioning kaboom", err)
	}
	if _, err := b.Call(ctx, "nope", nil); !errors.Is(err, backend.ErrToolNotFound) {
		t.Errorf("unknown tool error = %v, want ErrToolNotFound", err)
	}
}

func TestRemoteBackend_BadExtensionSpawnsNothing(t *testing.T) {
	var calls atomic.Int32
	serveInMemory(t, writeSource(t), &calls)

	_, err := New(Config{}).Connect(context.Background(), "/does/not/exist/tools.rb")
	if !errors.Is(err, backend.ErrConnection) || !errors.Is(err, backend.ErrUnsupportedSource) {
		t.Fatalf("Connect() error = %v, want unsupported source", err)
	}
	var ce *backend.ConnectionError
	if !errors.As(err, &ce) || ce.Op != "resolve" {
		t.Errorf("Op = %v, want resolve", ce)
	}
	if calls.Load() != 0 {
		t.Errorf("transport built %d times, want 0", calls.Load())
	}
}

func TestRemoteBackend_ConnectFailures(t *testing.T) {
	source := writeSource(t)
	original := transportBuilder
	t.Cleanup(func() { transportBuilder = original })

	transportBuilder = func(context.Context, backend.Runtime, string, io.Writer) (mcp.Transport, error) {
		return nil, fmt.Errorf("no such runtime")
	}
	_, err := New(Config{}).Connect(context.Background(), source)
	var ce *backend.ConnectionError
	if !errors.As(err, &ce) || ce.Op != "spawn" {
		t.Errorf("builder failure = %v, want spawn ConnectionError", err)
	}

	transportBuilder = func(context.Context, backend.Runtime, string, io.Writer) (mcp.Transport, error) {
		return failingTransport{}, nil
	}
	_, err = New(Config{}).Connect(context.Background(), source)
	if !errors.As(err, &ce) || ce.Op != "initialize" {
		t.Errorf("handshake failure = %v, want initialize ConnectionError", err)
	}

	_, err = New(Config{}).Connect(context.Background(), filepath.Join(t.TempDir(), "missing.ts"))
	if !errors.As(err, &ce) || ce.Op != "stat" {
		t.Errorf("missing source = %v, want stat ConnectionError", err)
	}
}

func TestRemoteBackend_Lifecycle(t *testing.T) {
	if _, err := New(Config{}).Call(context.Background(), "concat", nil); !errors.Is(err, backend.ErrNotConnected) {
		t.Errorf("Call() before Connect error = %v, want ErrNotConnected", err)
	}

	b := connect(t)
	if _, err := b.Connect(context.Background(), "again.ts"); !errors.Is(err, backend.ErrAlreadyConnected) {
		t.Errorf("second Connect() error = %v, want ErrAlreadyConnected", err)
	}
	_ = b.Cleanup()
	if err := b.Cleanup(); err != nil {
		t.Errorf("second Cleanup() error = %v", err)
	}
	if _, err := b.Call(context.Background(), "concat", nil); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Call() after Cleanup error = %v, want ErrClosed", err)
	}
}

func TestCommandTransport_UnknownCommand(t *testing.T) {
	rt := backend.Runtime{Command: "definitely-not-a-real-runtime-binary"}
	if _, err := commandTransport(context.Background(), rt, "x.ts", nil); err == nil {
		t.Error("commandTransport() error = nil, want lookup failure")
	}
}

type failingTransport struct{}

func (failingTransport) Connect(context.Context) (mcp.Connection, error) {
	return nil, fmt.Errorf("connect failed")
}
