package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoServer indicates that no tool source was configured.
var ErrNoServer = errors.New("no server configured")

// ResolveServer returns the configured server path.
func (c *Config) ResolveServer() (string, error) {
	return c.Resolve(c.Server)
}

// Resolve turns a server path into the form handed to the backend. A
// relative path is taken from ServerBase when one is set. The path mode then
// decides whether the result is absolute or relative to the working
// directory; a path that cannot be made relative is returned unchanged.
func (c *Config) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrNoServer
	}
	if c.ServerBase != "" && !filepath.IsAbs(path) {
		path = filepath.Join(c.ServerBase, path)
	}

	switch c.PathMode {
	case PathAbsolute:
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		return abs, nil
	default:
		if !filepath.IsAbs(path) {
			return filepath.Clean(path), nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return path, nil
		}
		rel, err := filepath.Rel(wd, path)
		if err != nil {
			return path, nil
		}
		return rel, nil
	}
}

// Presets lists the tool sources under ServerBase laid out as
// <base>/<name>/<name>.<ext> for every extension with a runtime.
// Results are relative to ServerBase and sorted.
func (c *Config) Presets() ([]string, error) {
	if c.ServerBase == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(c.ServerBase)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	runtimes := c.RuntimeTable()
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for ext := range runtimes {
			rel := filepath.Join(e.Name(), e.Name()+ext)
			if info, err := os.Stat(filepath.Join(c.ServerBase, rel)); err == nil && !info.IsDir() {
				out = append(out, rel)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
