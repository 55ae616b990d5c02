package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureLogger) record(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, level+": "+msg)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record("debug", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record("info", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record("warn", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record("error", msg) }

const tsSource = `// @tool
export async function concat(x: str, y: str): str {
  /** Join two strings with a hyphen. */
  return x + "-" + y;
}

export function double(n: number): number {
  return n * 2;
}

export async function fail(reason: string): Promise<string> {
  throw new Error(reason);
}

function greet(name: string): string {
  console.log("greeting", name);
  return "hello " + name;
}

export async function forever(): Promise<string> {
  return new Promise<string>(() => {});
}

interface Unused { a: number }
`

func compileTS(t *testing.T, logger Logger) *Unit {
	t.Helper()
	u, err := Compile("tools.ts", tsSource, logger)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return u
}

func TestUnit_CallAsync(t *testing.T) {
	u := compileTS(t, nil)
	got, err := u.Call(context.Background(), "concat", []any{"a", "b"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "a-b" {
		t.Errorf("Call() = %v, want %q", got, "a-b")
	}
}

func TestUnit_CallSync(t *testing.T) {
	u := compileTS(t, nil)
	got, err := u.Call(context.Background(), "double", []any{int64(21)})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if fmt.Sprint(got) != "42" {
		t.Errorf("Call() = %v, want 42", got)
	}
}

func TestUnit_Errors(t *testing.T) {
	u := compileTS(t, nil)
	ctx := context.Background()

	if _, err := u.Call(ctx, "missing", nil); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("missing error = %v, want ErrFunctionNotFound", err)
	}

	_, err := u.Call(ctx, "fail", []any{"boom"})
	if !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "boom") {
		t.Errorf("fail error = %v, want rejection mentioning boom", err)
	}

	if _, err := u.Call(ctx, "forever", nil); !errors.Is(err, ErrPending) {
		t.Errorf("forever error = %v, want ErrPending", err)
	}
}

func TestUnit_ThrowSync(t *testing.T) {
	u, err := Compile("sync.js", `function explode() { throw new TypeError("bad input"); }`, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	_, err = u.Call(context.Background(), "explode", nil)
	if err == nil || !strings.Contains(err.Error(), "bad input") {
		t.Errorf("Call() error = %v, want thrown message", err)
	}
}

func TestUnit_NoTimers(t *testing.T) {
	src := `export async function later(): Promise<string> {
  return new Promise<string>((resolve) => setTimeout(() => resolve("late"), 1));
}`
	u, err := Compile("timers.ts", src, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	_, err = u.Call(context.Background(), "later", nil)
	if !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "setTimeout is not defined") {
		t.Errorf("Call() error = %v, want rejection naming setTimeout", err)
	}
}

func TestUnit_Has(t *testing.T) {
	u := compileTS(t, nil)
	for _, name := range []string{"concat", "double", "greet"} {
		if !u.Has(name) {
			t.Errorf("Has(%q) = false, want true", name)
		}
	}
	if u.Has("Unused") || u.Has("nothing") {
		t.Error("Has() reported a non-function")
	}
}

func TestUnit_ModuleExports(t *testing.T) {
	src := `module.exports.shout = async function (s) { return s.toUpperCase(); };`
	u, err := Compile("cjs.js", src, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got, err := u.Call(context.Background(), "shout", []any{"hi"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "HI" {
		t.Errorf("Call() = %v, want HI", got)
	}
}

func TestUnit_Console(t *testing.T) {
	logger := &captureLogger{}
	u := compileTS(t, logger)
	if _, err := u.Call(context.Background(), "greet", []any{"ada"}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(logger.lines) != 1 || logger.lines[0] != "info: greeting ada" {
		t.Errorf("console lines = %v", logger.lines)
	}
}

func TestUnit_CancelledContext(t *testing.T) {
	u, err := Compile("loop.js", `function spin() { for (;;) {} }
function ok() { return 1; }`, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := u.Call(ctx, "spin", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}

	// The unit stays usable after an interrupted call.
	if _, err := u.Call(context.Background(), "ok", nil); err != nil {
		t.Errorf("Call() after interrupt error = %v", err)
	}
}

func TestCompile_Errors(t *testing.T) {
	if _, err := Compile("bad.ts", `export async function (: {`, nil); !errors.Is(err, ErrCompile) {
		t.Errorf("syntax error = %v, want ErrCompile", err)
	}
	if _, err := Compile("throws.js", `throw new Error("at load")`, nil); !errors.Is(err, ErrCompile) {
		t.Errorf("load-time throw = %v, want ErrCompile", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.ts")
	if err := os.WriteFile(path, []byte(tsSource), 0o600); err != nil {
		t.Fatal(err)
	}
	u, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if u.Name() != path {
		t.Errorf("Name() = %q, want %q", u.Name(), path)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ts"), nil); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}
