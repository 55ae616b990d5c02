package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Language identifies a tool-source grammar.
type Language string

// Supported tool-source languages.
const (
	LanguagePython Language = "python"
	LanguageScript Language = "script"
)

// Logger receives extraction warnings. *slog.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

var (
	pythonTool = regexp.MustCompile(
		`(?s)@mcp\.tool\(\)\s*async\s*def\s+(\w+)\(([^)]*)\)\s*->\s*(\w+):\s*"""([^"]*)"""`)

	scriptTool = regexp.MustCompile(
		`(?s)//\s*@tool[ \t]*\r?\n\s*(?:export\s+)?async\s+function\s+(\w+)\s*\(([^)]*)\)\s*:\s*([\w<>\[\]]+)\s*\{\s*/\*\*(.*?)\*/`)

	identifier = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

// LanguageFor returns the grammar for a source file extension.
func LanguageFor(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".py":
		return LanguagePython, true
	case ".ts", ".js":
		return LanguageScript, true
	default:
		return "", false
	}
}

// Extract reads a tool-source file and returns the descriptors of every
// entry matching the static grammar for its extension.
func Extract(path string, logger Logger) ([]Descriptor, error) {
	lang, ok := LanguageFor(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("unsupported tool source extension %q", filepath.Ext(path))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool source: %w", err)
	}
	return ExtractSource(lang, string(src), logger), nil
}

// ExtractSource scans src with the grammar for lang. Malformed or duplicate
// entries are skipped and reported to logger.
func ExtractSource(lang Language, src string, logger Logger) []Descriptor {
	if logger == nil {
		logger = nopLogger{}
	}
	pattern := scriptTool
	if lang == LanguagePython {
		pattern = pythonTool
	}

	var out []Descriptor
	seen := make(map[string]bool)
	for _, m := range pattern.FindAllStringSubmatch(src, -1) {
		name, rawParams, returns, doc := m[1], m[2], m[3], m[4]
		if seen[name] {
			logger.Warn("skipping duplicate tool", "tool", name)
			continue
		}
		params, err := parseParams(rawParams)
		if err != nil {
			logger.Warn("skipping malformed tool", "tool", name, "error", err)
			continue
		}
		seen[name] = true
		out = append(out, Descriptor{
			Name:        name,
			Description: firstLine(doc),
			Params:      params,
			Returns:     unwrapPromise(returns),
		})
	}
	return out
}

// parseParams splits a "name: type, ..." list. Entries without a type
// annotation are ignored.
func parseParams(raw string) ([]Param, error) {
	var params []Param
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		name, annotation, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSuffix(strings.TrimSpace(name), "?")
		if !identifier.MatchString(name) {
			return nil, fmt.Errorf("invalid parameter name %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter %q", name)
		}
		seen[name] = true
		if before, _, found := strings.Cut(annotation, "="); found {
			annotation = before
		}
		annotation = strings.TrimSpace(annotation)
		params = append(params, Param{
			Name:       name,
			Type:       InferType(annotation),
			Annotation: annotation,
		})
	}
	return params, nil
}

func unwrapPromise(t string) string {
	if strings.HasPrefix(t, "Promise<") && strings.HasSuffix(t, ">") {
		return t[len("Promise<") : len(t)-1]
	}
	return t
}
