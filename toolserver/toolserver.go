// Package toolserver serves an annotated script tool source as an MCP server.
//
// Every descriptor extracted from the source is registered with the MCP
// server using its derived JSON schema; calls run through the in-process
// backend, coercion included. Tool failures are returned as error results,
// never as protocol errors, so the client sees the failure text.
//
// This is what "toolchat serve <file>" runs, and it is the default runtime
// the remote backend uses for .ts sources.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/backend/local"
	"github.com/jonwraymond/toolchat/catalog"
)

// Options configures a Server.
type Options struct {
	// Name and Version identify the server in the handshake.
	Name    string
	Version string

	Logger backend.Logger
}

// Server exposes one tool source over MCP.
type Server struct {
	backend *local.Backend
	server  *mcp.Server
	cat     *catalog.Catalog
	logger  backend.Logger
}

// New loads source and registers its tools. Only script sources can be
// served.
func New(ctx context.Context, source string, opts Options) (*Server, error) {
	if lang, _ := catalog.LanguageFor(filepath.Ext(source)); lang != catalog.LanguageScript {
		return nil, &backend.ConnectionError{Source: source, Op: "resolve", Err: backend.ErrUnsupportedSource}
	}
	if opts.Name == "" {
		opts.Name = "toolchat"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = backend.NopLogger{}
	}

	b := local.New(local.Config{Logger: opts.Logger})
	cat, err := b.Connect(ctx, source)
	if err != nil {
		return nil, err
	}

	s := &Server{
		backend: b,
		server:  mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		cat:     cat,
		logger:  opts.Logger,
	}
	for _, d := range cat.Descriptors() {
		s.server.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema(),
		}, s.handler(d.Name))
	}
	return s, nil
}

// Catalog returns the served catalog.
func (s *Server) Catalog() *catalog.Catalog {
	return s.cat
}

// Run serves on transport until the peer disconnects or ctx is done, then
// releases the loaded source.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	defer s.Close()
	s.logger.Info("serving tools", "tools", s.cat.Len())
	return s.server.Run(ctx, transport)
}

// Connect starts a session on transport without blocking.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// Close releases the loaded source.
func (s *Server) Close() error {
	return s.backend.Cleanup()
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("decode arguments: %w", err)), nil
			}
		}
		res, err := s.backend.Call(ctx, name, args)
		if err != nil {
			s.logger.Warn("tool call failed", "tool", name, "error", err)
			return errorResult(err), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Text()}},
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// ServeStdio serves source over the process's standard streams.
func ServeStdio(ctx context.Context, source string, opts Options) error {
	s, err := New(ctx, source, opts)
	if err != nil {
		return err
	}
	return s.Run(ctx, &mcp.StdioTransport{})
}
