package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprint(append([]any{msg}, args...)...))
}

const pythonSource = `from mcp.server.fastmcp import FastMCP

mcp = FastMCP("demo")

@mcp.tool()
async def concat(x: str, y: str) -> str:
    """Join two strings with a hyphen.

    Longer explanation that is not part of the description.
    """
    return f"{x}-{y}"

def helper(a: int) -> int:
    """Not a tool."""
    return a
`

const scriptSource = `// @tool
export async function add(a: int, b: float): float {
  /** Add two numbers. */
  return a + b;
}

// @tool
async function shout(text: str, loud: bool): Promise<str> {
  /**
   * Upper-case the text.
   */
  return loud ? text.toUpperCase() : text;
}

export async function hidden(a: int): int {
  /** No marker, so not a tool. */
  return a;
}
`

func TestExtractSource_Python(t *testing.T) {
	descs := ExtractSource(LanguagePython, pythonSource, nil)
	if len(descs) != 1 {
		t.Fatalf("len(descs) = %d, want 1", len(descs))
	}
	d := descs[0]
	if d.Name != "concat" {
		t.Errorf("Name = %q, want %q", d.Name, "concat")
	}
	if d.Description != "Join two strings with a hyphen." {
		t.Errorf("Description = %q", d.Description)
	}
	if d.Returns != "str" {
		t.Errorf("Returns = %q, want %q", d.Returns, "str")
	}
	if got := d.ParamNames(); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("ParamNames() = %v, want [x y]", got)
	}
	for _, p := range d.Params {
		if p.Type != TypeString {
			t.Errorf("param %s type = %q, want %q", p.Name, p.Type, TypeString)
		}
	}
}

func TestExtractSource_Script(t *testing.T) {
	descs := ExtractSource(LanguageScript, scriptSource, nil)
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}
	add, shout := descs[0], descs[1]
	if add.Name != "add" || shout.Name != "shout" {
		t.Fatalf("names = %q, %q", add.Name, shout.Name)
	}
	if add.Params[0].Type != TypeInteger || add.Params[1].Type != TypeFloat {
		t.Errorf("add param types = %q, %q", add.Params[0].Type, add.Params[1].Type)
	}
	if shout.Params[1].Type != TypeBoolean {
		t.Errorf("shout loud type = %q, want boolean", shout.Params[1].Type)
	}
	if shout.Returns != "str" {
		t.Errorf("shout Returns = %q, want %q", shout.Returns, "str")
	}
	if shout.Description != "Upper-case the text." {
		t.Errorf("shout Description = %q", shout.Description)
	}
}

func TestExtractSource_Selectivity(t *testing.T) {
	src := `// @tool
export async function matched(a: str): str {
  /** Matches. */
  return a;
}

// @tool
export function notAsync(a: str): str {
  /** Missing async keyword. */
  return a;
}
`
	descs := ExtractSource(LanguageScript, src, nil)
	if len(descs) != 1 || descs[0].Name != "matched" {
		t.Fatalf("descs = %+v, want exactly [matched]", descs)
	}
}

func TestExtractSource_SkipsMalformed(t *testing.T) {
	src := `@mcp.tool()
async def bad(1x: int) -> str:
    """Bad parameter name."""
    return ""

@mcp.tool()
async def good(n: int) -> str:
    """Fine."""
    return ""

@mcp.tool()
async def good(n: int) -> str:
    """Duplicate."""
    return ""
`
	logger := &recordingLogger{}
	descs := ExtractSource(LanguagePython, src, logger)
	if len(descs) != 1 || descs[0].Name != "good" {
		t.Fatalf("descs = %+v, want exactly [good]", descs)
	}
	if len(logger.warnings) != 2 {
		t.Errorf("warnings = %v, want 2", logger.warnings)
	}
}

func TestExtractSource_ParamsWithoutAnnotation(t *testing.T) {
	src := `@mcp.tool()
async def ping(ctx, host: str) -> str:
    """Ping a host."""
    return host
`
	descs := ExtractSource(LanguagePython, src, nil)
	if len(descs) != 1 {
		t.Fatalf("len(descs) = %d, want 1", len(descs))
	}
	if got := descs[0].ParamNames(); len(got) != 1 || got[0] != "host" {
		t.Errorf("ParamNames() = %v, want [host]", got)
	}
}

func TestExtract_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.py")
	if err := os.WriteFile(path, []byte(pythonSource), 0o600); err != nil {
		t.Fatal(err)
	}
	descs, err := Extract(path, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(descs) != 1 {
		t.Errorf("len(descs) = %d, want 1", len(descs))
	}
}

func TestExtract_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Extract(filepath.Join(dir, "tools.rb"), nil); err == nil {
		t.Error("Extract(.rb) error = nil, want error")
	}
	if _, err := Extract(filepath.Join(dir, "missing.py"), nil); err == nil {
		t.Error("Extract(missing) error = nil, want error")
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		annotation string
		want       ParamType
	}{
		{"float", TypeFloat},
		{"int", TypeInteger},
		{"bool", TypeBoolean},
		{"str", TypeString},
		{"number", TypeString},
		{"Optional[int]", TypeInteger},
		{"float_or_int", TypeFloat},
		{"", TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.annotation, func(t *testing.T) {
			if got := InferType(tt.annotation); got != tt.want {
				t.Errorf("InferType(%q) = %q, want %q", tt.annotation, got, tt.want)
			}
		})
	}
}

func TestLanguageFor(t *testing.T) {
	tests := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{".py", LanguagePython, true},
		{".ts", LanguageScript, true},
		{".JS", LanguageScript, true},
		{".go", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageFor(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageFor(%q) = %q, %v; want %q, %v", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}
