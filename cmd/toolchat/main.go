// Command toolchat chats with a model that can call tools from a local
// tool source.
//
//	toolchat [chat] [flags]          interactive chat (default)
//	toolchat tools [flags] [path]    print the tool catalog as YAML
//	toolchat serve <path>            serve a .ts/.js tool source over MCP stdio
//	toolchat version
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dimiro1/banner"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/backend/local"
	"github.com/jonwraymond/toolchat/backend/remote"
	"github.com/jonwraymond/toolchat/catalog"
	"github.com/jonwraymond/toolchat/chat"
	"github.com/jonwraymond/toolchat/config"
	"github.com/jonwraymond/toolchat/internal/repl"
	"github.com/jonwraymond/toolchat/llm"
	"github.com/jonwraymond/toolchat/logging"
	"github.com/jonwraymond/toolchat/session"
	"github.com/jonwraymond/toolchat/toolserver"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil && !errors.Is(err, pflag.ErrHelp) && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "toolchat:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := "chat"
	if len(args) > 0 {
		switch args[0] {
		case "chat", "tools", "serve", "version":
			cmd, args = args[0], args[1:]
		}
	}
	switch cmd {
	case "version":
		fmt.Println("toolchat", Version)
		return nil
	case "serve":
		return runServe(ctx, args)
	case "tools":
		return runTools(ctx, args)
	default:
		return runChat(ctx, args)
	}
}

// loadConfig parses the command's flags; a positional argument overrides
// the configured server.
func loadConfig(name string, args []string) (config.Config, error) {
	fs := pflag.NewFlagSet("toolchat "+name, pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return config.Config{}, err
	}
	if fs.NArg() > 0 {
		cfg.Server = fs.Arg(0)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, cfg.LogFormat)
}

// sessionConfig builds the session configuration. Script sources served
// remotely re-execute this binary as `toolchat serve`.
func sessionConfig(cfg config.Config, logger *slog.Logger) session.Config {
	runtimes := cfg.RuntimeTable()
	if rt, ok := runtimes[".ts"]; ok && rt.Command == "toolchat" {
		if exe, err := os.Executable(); err == nil {
			runtimes[".ts"] = backend.Runtime{Command: exe, Args: rt.Args, Env: rt.Env}
		}
	}
	return session.Config{
		Mode: cfg.Mode,
		Remote: remote.Config{
			Runtimes:      runtimes,
			ClientName:    "toolchat",
			ClientVersion: Version,
			Stderr:        os.Stderr,
			Logger:        logging.Component(logger, "remote"),
		},
		Local:  local.Config{Logger: logging.Component(logger, "local")},
		Logger: logging.Component(logger, "session"),
	}
}

func runChat(ctx context.Context, args []string) error {
	cfg, err := loadConfig("chat", args)
	if err != nil {
		return err
	}
	if err := cfg.RequireChat(); err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	model, err := llm.NewAnthropic(llm.AnthropicConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: llm.DefaultMaxRetries,
		UserAgent:  "toolchat/" + Version,
	})
	if err != nil {
		return err
	}
	presets, err := cfg.Presets()
	if err != nil {
		logger.Warn("server presets unavailable", "error", err)
	}

	printBanner(os.Stdout)
	scfg := sessionConfig(cfg, logger)
	console := repl.New(repl.Options{
		Open: func(ctx context.Context, source string) (*session.Session, error) {
			return session.Open(ctx, source, scfg)
		},
		Resolve: cfg.Resolve,
		Chat: chat.Config{
			Model:     model,
			ModelID:   cfg.Model,
			MaxTokens: cfg.MaxTokens,
			System:    cfg.System,
			Logger:    logging.Component(logger, "chat"),
		},
		Presets: presets,
	})
	if cfg.Server != "" {
		if err := console.Connect(ctx, cfg.Server); err != nil {
			fmt.Fprintln(os.Stdout, "error: connect:", err)
		}
	}
	return console.Run(ctx)
}

func runTools(ctx context.Context, args []string) error {
	cfg, err := loadConfig("tools", args)
	if err != nil {
		return err
	}
	source, err := cfg.ResolveServer()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	sess, err := session.Open(ctx, source, sessionConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer sess.Close()
	return writeCatalog(os.Stdout, sess.Source(), sess.Mode(), sess.Catalog())
}

func runServe(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("toolchat serve", pflag.ContinueOnError)
	level := fs.String("log-level", "warn", "log level")
	format := fs.String("log-format", "text", "log format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: toolchat serve <path>")
	}
	lvl, err := logging.ParseLevel(*level)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, lvl, *format)
	if err != nil {
		return err
	}
	return toolserver.ServeStdio(ctx, fs.Arg(0), toolserver.Options{
		Name:    "toolchat",
		Version: Version,
		Logger:  logging.Component(logger, "toolserver"),
	})
}

type catalogDoc struct {
	Source string    `yaml:"source"`
	Mode   string    `yaml:"mode"`
	Tools  []toolDoc `yaml:"tools"`
}

type toolDoc struct {
	Name        string         `yaml:"name"`
	Signature   string         `yaml:"signature"`
	Description string         `yaml:"description,omitempty"`
	InputSchema map[string]any `yaml:"input_schema"`
}

func writeCatalog(w io.Writer, source string, mode session.Mode, cat *catalog.Catalog) error {
	doc := catalogDoc{Source: source, Mode: mode.String()}
	for _, d := range cat.Descriptors() {
		doc.Tools = append(doc.Tools, toolDoc{
			Name:        d.Name,
			Signature:   d.Signature(),
			Description: d.Description,
			InputSchema: d.InputSchema(),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func printBanner(w io.Writer) {
	tpl := "{{ .Title \"toolchat\" \"\" 0 }}\nVersion: " + Version + " | type /help for commands\n"
	banner.Init(w, true, true, bytes.NewBufferString(tpl))
}
