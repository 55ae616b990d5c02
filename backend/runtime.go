package backend

import (
	"path/filepath"
	"strings"
)

// Runtime is the fixed command used to run a tool source as an MCP server.
type Runtime struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
	Env     []string `mapstructure:"env" yaml:"env,omitempty"`
}

// Argv returns the full argument vector (without the command) for source.
func (r Runtime) Argv(source string) []string {
	return append(append([]string(nil), r.Args...), source)
}

// DefaultRuntimes returns the extension → runtime table.
func DefaultRuntimes() map[string]Runtime {
	return map[string]Runtime{
		".py": {Command: "python", Env: []string{"PYTHONIOENCODING=utf-8"}},
		".js": {Command: "node"},
		".ts": {Command: "toolchat", Args: []string{"serve"}},
	}
}

// ResolveRuntime returns the runtime bound to source's extension.
// Unknown extensions fail with a *ConnectionError wrapping
// ErrUnsupportedSource.
func ResolveRuntime(runtimes map[string]Runtime, source string) (Runtime, error) {
	ext := strings.ToLower(filepath.Ext(source))
	rt, ok := runtimes[ext]
	if !ok || rt.Command == "" {
		return Runtime{}, &ConnectionError{
			Source: source,
			Op:     "resolve",
			Err:    ErrUnsupportedSource,
		}
	}
	return rt, nil
}
