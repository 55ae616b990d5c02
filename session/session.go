// Package session opens an execution session: one backend variant, its
// catalog and the transport or loaded unit behind it.
//
// The variant is chosen once, at Open, from [Mode]. Nothing downstream
// inspects which variant is in use.
//
//	s, err := session.Open(ctx, "tools/concat.ts", session.Config{Mode: session.ModeRemote})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	res, err := s.Call(ctx, "concat", map[string]any{"x": "a", "y": "b"})
package session

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/tooldoc"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/backend/local"
	"github.com/jonwraymond/toolchat/backend/remote"
	"github.com/jonwraymond/toolchat/catalog"
)

// Mode selects the backend variant.
type Mode string

// Execution modes.
const (
	ModeRemote    Mode = "remote"
	ModeInProcess Mode = "inprocess"
)

// DefaultMode returns the in-process mode on Windows, where child process
// stdio is unreliable, and the remote mode elsewhere.
func DefaultMode() Mode {
	if runtime.GOOS == "windows" {
		return ModeInProcess
	}
	return ModeRemote
}

// ParseMode parses a mode name. The empty string yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultMode(), nil
	case "remote", "process", "subprocess":
		return ModeRemote, nil
	case "inprocess", "in-process", "local":
		return ModeInProcess, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Config configures Open.
type Config struct {
	// Mode selects the backend variant. Empty means DefaultMode().
	Mode Mode

	// Remote configures the remote-process variant.
	Remote remote.Config

	// Local configures the in-process variant.
	Local local.Config

	// Namespace prefixes tool IDs in the search index.
	Namespace string

	Logger backend.Logger
}

// Session is one connected backend and its catalog.
//
// Contract:
// - Ownership: a Session is never shared across clients.
// - Lifecycle: Close is idempotent; calls after Close fail with backend.ErrClosed.
type Session struct {
	id     uuid.UUID
	mode   Mode
	source string
	b      backend.Backend
	cat    *catalog.Catalog
	index  *catalog.Index
	logger backend.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open connects source using the configured variant.
func Open(ctx context.Context, source string, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = backend.NopLogger{}
	}
	mode := cfg.Mode
	if mode == "" {
		mode = DefaultMode()
	}

	var b backend.Backend
	switch mode {
	case ModeRemote:
		rc := cfg.Remote
		if rc.Logger == nil {
			rc.Logger = cfg.Logger
		}
		b = remote.New(rc)
	case ModeInProcess:
		lc := cfg.Local
		if lc.Logger == nil {
			lc.Logger = cfg.Logger
		}
		b = local.New(lc)
	default:
		return nil, fmt.Errorf("unknown execution mode %q", mode)
	}

	cat, err := b.Connect(ctx, source)
	if err != nil {
		_ = b.Cleanup()
		return nil, err
	}
	idx, err := catalog.NewIndex(cat, cfg.Namespace)
	if err != nil {
		_ = b.Cleanup()
		return nil, fmt.Errorf("index catalog: %w", err)
	}

	s := &Session{
		id:     uuid.New(),
		mode:   mode,
		source: source,
		b:      b,
		cat:    cat,
		index:  idx,
		logger: cfg.Logger,
	}
	cfg.Logger.Info("session opened",
		"session", s.id.String(), "mode", mode.String(), "source", source, "tools", cat.Len())
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Mode returns the backend variant in use.
func (s *Session) Mode() Mode { return s.mode }

// Source returns the connected tool source.
func (s *Session) Source() string { return s.source }

// Catalog returns the session's catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// Call invokes a tool through the session's backend.
func (s *Session) Call(ctx context.Context, name string, args map[string]any) (backend.Result, error) {
	return s.b.Call(ctx, name, args)
}

// Search returns catalog tools matching query.
func (s *Session) Search(query string, limit int) ([]index.Summary, error) {
	return s.index.Search(query, limit)
}

// Describe returns full documentation for a tool.
func (s *Session) Describe(name string) (tooldoc.ToolDoc, error) {
	if !s.cat.Has(name) {
		return tooldoc.ToolDoc{}, backend.NewToolNotFound(name)
	}
	return s.index.Describe(name)
}

// Close releases the backend. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.b.Cleanup()
		s.logger.Info("session closed", "session", s.id.String())
	})
	return s.closeErr
}
