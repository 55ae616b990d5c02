// Package local implements the in-process backend: the catalog comes from
// static extraction and calls run inside an embedded script runtime.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/catalog"
	"github.com/jonwraymond/toolchat/coerce"
	"github.com/jonwraymond/toolchat/script"
)

// Config configures an in-process backend.
type Config struct {
	// Logger receives extraction warnings and console output from tool code.
	Logger backend.Logger
}

// Backend implements backend.Backend without spawning a process.
type Backend struct {
	logger backend.Logger

	mu     sync.Mutex
	source string
	cat    *catalog.Catalog
	unit   *script.Unit
	closed bool
}

var _ backend.Backend = (*Backend)(nil)

// New creates an unconnected in-process backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = backend.NopLogger{}
	}
	return &Backend{logger: logger}
}

// Kind returns backend.KindLocal.
func (b *Backend) Kind() backend.Kind {
	return backend.KindLocal
}

// Connect extracts the catalog from source. The extension is checked before
// the file is touched.
func (b *Backend) Connect(_ context.Context, source string) (*catalog.Catalog, error) {
	if _, ok := catalog.LanguageFor(filepath.Ext(source)); !ok {
		return nil, &backend.ConnectionError{Source: source, Op: "resolve", Err: backend.ErrUnsupportedSource}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, &backend.ConnectionError{Source: source, Op: "connect", Err: backend.ErrClosed}
	}
	if b.cat != nil {
		return nil, &backend.ConnectionError{Source: source, Op: "connect", Err: backend.ErrAlreadyConnected}
	}

	if _, err := os.Stat(source); err != nil {
		return nil, &backend.ConnectionError{Source: source, Op: "stat", Err: err}
	}
	descs, err := catalog.Extract(source, b.logger)
	if err != nil {
		return nil, &backend.ConnectionError{Source: source, Op: "extract", Err: err}
	}
	cat, err := catalog.New(descs...)
	if err != nil {
		return nil, &backend.ConnectionError{Source: source, Op: "extract", Err: err}
	}

	b.source = source
	b.cat = cat
	b.logger.Info("in-process backend connected", "source", source, "tools", cat.Len())
	return cat, nil
}

// Catalog returns the extracted catalog.
func (b *Backend) Catalog() *catalog.Catalog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cat
}

// Call loads the source on first use, coerces args against the tool's
// descriptor and invokes the function positionally in declared order.
func (b *Backend) Call(ctx context.Context, name string, args map[string]any) (backend.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return backend.Result{}, backend.ErrClosed
	case b.cat == nil:
		return backend.Result{}, backend.ErrNotConnected
	}

	desc, ok := b.cat.Get(name)
	if !ok {
		return backend.Result{}, backend.NewToolNotFound(name)
	}

	unit, err := b.load()
	if err != nil {
		return backend.Result{}, backend.NewToolExecution(name, err)
	}
	if !unit.Has(name) {
		return backend.Result{}, backend.NewToolNotFound(name)
	}

	coerced, err := coerce.Arguments(desc, args)
	if err != nil {
		return backend.Result{}, err
	}

	value, err := unit.Call(ctx, name, coerce.Positional(desc, coerced))
	if err != nil {
		b.logger.Warn("tool raised", "tool", name, "error", err)
		return backend.Result{}, backend.NewToolExecution(name, err)
	}
	return backend.Result{Value: value}, nil
}

// load compiles the source once per session.
func (b *Backend) load() (*script.Unit, error) {
	if b.unit != nil {
		return b.unit, nil
	}
	if lang, _ := catalog.LanguageFor(filepath.Ext(b.source)); lang != catalog.LanguageScript {
		return nil, fmt.Errorf("%s sources cannot run in-process", lang)
	}
	unit, err := script.Load(b.source, b.logger)
	if err != nil {
		return nil, err
	}
	b.unit = unit
	return unit, nil
}

// Cleanup drops the loaded unit. It is idempotent.
func (b *Backend) Cleanup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.unit = nil
	b.logger.Debug("in-process backend closed", "source", b.source)
	return nil
}
