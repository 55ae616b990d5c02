// Package repl is the interactive chat loop behind `toolchat chat`.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jonwraymond/toolchat/chat"
	"github.com/jonwraymond/toolchat/llm"
	"github.com/jonwraymond/toolchat/session"
)

// ErrNotConnected is reported when a query arrives with no open session.
var ErrNotConnected = errors.New("not connected; use /connect <path>")

// OpenFunc opens a session for a tool source.
type OpenFunc func(ctx context.Context, source string) (*session.Session, error)

// Options configures a REPL.
type Options struct {
	In  io.Reader
	Out io.Writer

	// Open connects a tool source. Required.
	Open OpenFunc

	// Resolve maps user input to a source path. Nil uses the input as is.
	Resolve func(path string) (string, error)

	// Chat is the orchestrator template; Executor is set per session.
	Chat chat.Config

	// Presets are listed by /servers and may be chosen by number.
	Presets []string

	// SearchLimit bounds /search results. Defaults to 5.
	SearchLimit int
}

// REPL reads queries and slash commands and runs them against one session
// at a time.
type REPL struct {
	opts Options

	mu   sync.Mutex
	sess *session.Session
	orch *chat.Orchestrator
}

// New creates a REPL.
func New(opts Options) *REPL {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}
	return &REPL{opts: opts}
}

// Connect opens source, replacing any current session.
func (r *REPL) Connect(ctx context.Context, source string) error {
	if r.opts.Resolve != nil {
		resolved, err := r.opts.Resolve(source)
		if err != nil {
			return err
		}
		source = resolved
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectLocked()

	sess, err := r.opts.Open(ctx, source)
	if err != nil {
		return err
	}
	cfg := r.opts.Chat
	cfg.Executor = sess
	orch, err := chat.New(cfg)
	if err != nil {
		_ = sess.Close()
		return err
	}
	r.sess, r.orch = sess, orch
	fmt.Fprintf(r.opts.Out, "connected to %s (%s mode, %d tools)\n", sess.Source(), sess.Mode(), sess.Catalog().Len())
	return nil
}

// Close releases the current session, if any.
func (r *REPL) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnectLocked()
}

func (r *REPL) disconnectLocked() error {
	if r.sess == nil {
		return nil
	}
	err := r.sess.Close()
	r.sess, r.orch = nil, nil
	return err
}

// Run reads lines until EOF, /quit or ctx is done. The session is closed on
// every exit path.
func (r *REPL) Run(ctx context.Context) error {
	defer r.Close()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.opts.In)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.opts.Out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.opts.Out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.opts.Out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if r.command(ctx, line) {
				return nil
			}
			continue
		}
		r.query(ctx, line)
	}
}

func (r *REPL) query(ctx context.Context, q string) {
	r.mu.Lock()
	orch := r.orch
	r.mu.Unlock()
	if orch == nil {
		r.errorf("%v", ErrNotConnected)
		return
	}
	turn, err := orch.Process(ctx, q)
	if text := turn.Text(); text != "" {
		fmt.Fprintln(r.opts.Out, text)
	}
	if err != nil {
		r.errorf("%v", err)
	}
}

// command runs one slash command and reports whether the loop should end.
func (r *REPL) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name := strings.TrimPrefix(fields[0], "/")
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(r.opts.Out, helpText)
	case "servers":
		if len(r.opts.Presets) == 0 {
			fmt.Fprintln(r.opts.Out, "no presets (set server_base or BASE_MCP_SERVER_PATH)")
		}
		for i, p := range r.opts.Presets {
			fmt.Fprintf(r.opts.Out, "%d. %s\n", i+1, p)
		}
	case "connect":
		source := arg
		if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(r.opts.Presets) {
			source = r.opts.Presets[n-1]
		}
		if source == "" {
			r.errorf("usage: /connect <path|preset number>")
			return false
		}
		if err := r.Connect(ctx, source); err != nil {
			r.errorf("connect: %v", err)
		}
	case "disconnect":
		r.mu.Lock()
		connected := r.sess != nil
		err := r.disconnectLocked()
		r.mu.Unlock()
		switch {
		case err != nil:
			r.errorf("disconnect: %v", err)
		case connected:
			fmt.Fprintln(r.opts.Out, "disconnected; history cleared")
		default:
			fmt.Fprintln(r.opts.Out, "not connected")
		}
	case "tools":
		sess := r.current()
		if sess == nil {
			r.errorf("%v", ErrNotConnected)
			return false
		}
		for _, d := range sess.Catalog().Descriptors() {
			fmt.Fprintf(r.opts.Out, "- %s\n", d.Signature())
			if d.Description != "" {
				fmt.Fprintf(r.opts.Out, "    %s\n", firstLine(d.Description))
			}
		}
	case "search":
		sess := r.current()
		if sess == nil {
			r.errorf("%v", ErrNotConnected)
			return false
		}
		if arg == "" {
			r.errorf("usage: /search <query>")
			return false
		}
		hits, err := sess.Search(arg, r.opts.SearchLimit)
		if err != nil {
			r.errorf("search: %v", err)
			return false
		}
		if len(hits) == 0 {
			fmt.Fprintln(r.opts.Out, "no matches")
		}
		for _, h := range hits {
			fmt.Fprintf(r.opts.Out, "- %s: %s\n", h.Name, h.ShortDescription)
		}
	case "describe":
		sess := r.current()
		if sess == nil {
			r.errorf("%v", ErrNotConnected)
			return false
		}
		doc, err := sess.Describe(arg)
		if err != nil {
			r.errorf("describe: %v", err)
			return false
		}
		fmt.Fprintln(r.opts.Out, doc.Notes)
		if doc.Summary != "" {
			fmt.Fprintln(r.opts.Out, doc.Summary)
		}
	case "history":
		orch := r.orchestrator()
		if orch == nil {
			r.errorf("%v", ErrNotConnected)
			return false
		}
		for _, m := range orch.History() {
			for _, b := range m.Content {
				fmt.Fprintf(r.opts.Out, "%s: %s\n", m.Role, renderBlock(b))
			}
		}
	case "reset":
		if orch := r.orchestrator(); orch != nil {
			orch.Reset()
		}
		fmt.Fprintln(r.opts.Out, "history cleared")
	default:
		r.errorf("unknown command /%s (try /help)", name)
	}
	return false
}

func (r *REPL) current() *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess
}

func (r *REPL) orchestrator() *chat.Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orch
}

func (r *REPL) errorf(format string, args ...any) {
	fmt.Fprintf(r.opts.Out, "error: "+format+"\n", args...)
}

func renderBlock(b llm.Block) string {
	switch b.Type {
	case llm.BlockToolUse:
		return fmt.Sprintf("[tool_use %s] %s %s", b.ID, b.Name, string(b.Input))
	case llm.BlockToolResult:
		if b.IsError {
			return fmt.Sprintf("[tool_result %s error] %s", b.ToolUseID, b.Content)
		}
		return fmt.Sprintf("[tool_result %s] %s", b.ToolUseID, b.Content)
	default:
		return b.Text
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

const helpText = `commands:
  /help                 show this help
  /servers              list tool sources under the server base
  /connect <path|n>     connect a tool source (or preset number)
  /disconnect           close the session and clear history
  /tools                list available tools
  /search <query>       search tools
  /describe <tool>      show a tool's documentation
  /history              show the conversation so far
  /reset                clear the conversation
  /quit                 exit
anything else is sent to the model.
`
