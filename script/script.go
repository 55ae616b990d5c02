package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
)

// Errors returned by script units.
var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrCompile          = errors.New("compile error")
	ErrRejected         = errors.New("promise rejected")
	ErrPending          = errors.New("promise never settled")
)

// Logger receives console output from tool code. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

const prelude = `var module = { exports: {} }; var exports = module.exports;`

// Unit is a compiled tool source loaded into its own runtime.
type Unit struct {
	name string

	mu sync.Mutex
	vm *goja.Runtime
}

// Load reads path and compiles it.
func Load(path string, logger Logger) (*Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Compile(path, string(src), logger)
}

// Compile transforms and evaluates src. name selects the loader by its
// extension and labels error locations.
func Compile(name, src string, logger Logger) (*Unit, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	loader := api.LoaderJS
	if strings.EqualFold(filepath.Ext(name), ".ts") {
		loader = api.LoaderTS
	}
	out := api.Transform(src, api.TransformOptions{
		Loader:     loader,
		Target:     api.ES2017,
		Format:     api.FormatCommonJS,
		Sourcefile: name,
	})
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, m := range out.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
				continue
			}
			msgs = append(msgs, m.Text)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrCompile, name, strings.Join(msgs, "; "))
	}

	prog, err := goja.Compile(name, prelude+"\n"+string(out.Code), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, name, err)
	}

	vm := goja.New()
	if err := bindConsole(vm, logger); err != nil {
		return nil, err
	}
	if _, err := vm.RunProgram(prog); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, name, err)
	}
	return &Unit{name: name, vm: vm}, nil
}

// Name returns the source name the unit was compiled from.
func (u *Unit) Name() string {
	return u.name
}

// Has reports whether fn is an addressable function.
func (u *Unit) Has(fn string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.lookup(fn)
	return ok
}

// Call invokes fn with positional args and returns its exported result.
// Promises are awaited.
func (u *Unit) Call(ctx context.Context, fn string, args []any) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	callable, ok := u.lookup(fn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, fn)
	}

	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = u.vm.ToValue(a)
	}

	stop := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
			u.vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	res, err := callable(goja.Undefined(), values...)
	close(stop)
	<-watcher
	u.vm.ClearInterrupt()
	if err != nil {
		return nil, exceptionError(err)
	}
	return settle(res)
}

func (u *Unit) lookup(fn string) (goja.Callable, bool) {
	if v := u.vm.Get(fn); v != nil {
		if callable, ok := goja.AssertFunction(v); ok {
			return callable, true
		}
	}
	module := u.vm.Get("module")
	if module == nil || goja.IsUndefined(module) || goja.IsNull(module) {
		return nil, false
	}
	exports := module.ToObject(u.vm).Get("exports")
	if exports == nil || goja.IsUndefined(exports) || goja.IsNull(exports) {
		return nil, false
	}
	v := exports.ToObject(u.vm).Get(fn)
	if v == nil {
		return nil, false
	}
	return goja.AssertFunction(v)
}

func settle(res goja.Value) (any, error) {
	if res == nil {
		return nil, nil
	}
	p, ok := res.Export().(*goja.Promise)
	if !ok {
		return res.Export(), nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result().Export(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("%w: %s", ErrRejected, p.Result().String())
	default:
		return nil, ErrPending
	}
}

func exceptionError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return errors.New(ex.Value().String())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return err
}

func bindConsole(vm *goja.Runtime, logger Logger) error {
	console := vm.NewObject()
	levels := map[string]func(string, ...any){
		"log":   logger.Info,
		"info":  logger.Info,
		"debug": logger.Debug,
		"warn":  logger.Warn,
		"error": logger.Error,
	}
	for name, emit := range levels {
		emit := emit
		if err := console.Set(name, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			emit(strings.Join(parts, " "), "source", "console")
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}
