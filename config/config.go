// Package config loads toolchat settings from flags, environment, an
// optional .env file and an optional toolchat.yaml, in that precedence.
//
// Keys:
//
//	model         model id sent upstream
//	max_tokens    completion bound per request
//	api_key       upstream API key (also ANTHROPIC_API_KEY)
//	base_url      upstream base URL (also ANTHROPIC_BASE_URL)
//	system        optional system prompt
//	mode          remote | inprocess (empty: platform default)
//	server        tool source path
//	server_base   directory holding tool sources (also BASE_MCP_SERVER_PATH)
//	path_mode     relative | absolute
//	log_level     debug | info | warn | error
//	log_format    text | json
//	timeout       upstream HTTP timeout
//	runtimes      per-extension runtime overrides, keyed without the dot
//
// Every key can also be set as TOOLCHAT_<KEY>.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonwraymond/toolchat/backend"
	"github.com/jonwraymond/toolchat/llm"
	"github.com/jonwraymond/toolchat/logging"
	"github.com/jonwraymond/toolchat/session"
)

// ErrInvalid indicates one or more invalid settings.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment key.
const EnvPrefix = "TOOLCHAT"

// PathMode controls how a server path is presented to the backend.
type PathMode string

// Path modes.
const (
	PathRelative PathMode = "relative"
	PathAbsolute PathMode = "absolute"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PathMode) UnmarshalText(text []byte) error {
	switch PathMode(strings.ToLower(strings.TrimSpace(string(text)))) {
	case "", PathRelative:
		*p = PathRelative
	case PathAbsolute:
		*p = PathAbsolute
	default:
		return fmt.Errorf("unknown path mode %q", text)
	}
	return nil
}

// Config is the resolved application configuration.
type Config struct {
	Model      string                     `mapstructure:"model"`
	MaxTokens  int                        `mapstructure:"max_tokens"`
	APIKey     string                     `mapstructure:"api_key"`
	BaseURL    string                     `mapstructure:"base_url"`
	System     string                     `mapstructure:"system"`
	Mode       session.Mode               `mapstructure:"mode"`
	Server     string                     `mapstructure:"server"`
	ServerBase string                     `mapstructure:"server_base"`
	PathMode   PathMode                   `mapstructure:"path_mode"`
	LogLevel   string                     `mapstructure:"log_level"`
	LogFormat  string                     `mapstructure:"log_format"`
	Timeout    time.Duration              `mapstructure:"timeout"`
	Runtimes   map[string]backend.Runtime `mapstructure:"runtimes"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"model":       "model",
	"max-tokens":  "max_tokens",
	"api-key":     "api_key",
	"base-url":    "base_url",
	"system":      "system",
	"mode":        "mode",
	"server":      "server",
	"server-base": "server_base",
	"path-mode":   "path_mode",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"timeout":     "timeout",
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "config file (default: ./toolchat.yaml or ~/.config/toolchat/toolchat.yaml)")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringP("model", "m", "", "model id")
	fs.Int("max-tokens", 0, "max tokens per completion")
	fs.String("api-key", "", "upstream API key")
	fs.String("base-url", "", "upstream base URL")
	fs.String("system", "", "system prompt")
	fs.String("mode", "", "execution mode: remote or inprocess")
	fs.StringP("server", "s", "", "tool source path")
	fs.String("server-base", "", "directory holding tool sources")
	fs.String("path-mode", "", "path presentation: relative or absolute")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: text or json")
	fs.Duration("timeout", 0, "upstream request timeout")
}

// Load reads the configuration. flags may be nil; when set it must have
// been populated by RegisterFlags and parsed.
func Load(flags *pflag.FlagSet) (Config, error) {
	envFile := ".env"
	configFile := ""
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("toolchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "toolchat"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range flagKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("base_url", EnvPrefix+"_BASE_URL", "ANTHROPIC_BASE_URL")
	_ = v.BindEnv("server_base", EnvPrefix+"_SERVER_BASE", "BASE_MCP_SERVER_PATH")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.Mode == "" {
		cfg.Mode = session.DefaultMode()
	}
	if cfg.PathMode == "" {
		cfg.PathMode = PathRelative
	}
	cfg.Server = os.ExpandEnv(cfg.Server)
	cfg.ServerBase = os.ExpandEnv(cfg.ServerBase)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", llm.DefaultModel)
	v.SetDefault("max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("base_url", llm.DefaultBaseURL)
	v.SetDefault("path_mode", string(PathRelative))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", logging.FormatText)
	v.SetDefault("timeout", llm.DefaultTimeout)
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, "model is required")
	}
	if c.MaxTokens <= 0 {
		problems = append(problems, "max_tokens must be positive")
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if _, err := session.ParseMode(string(c.Mode)); err != nil {
		problems = append(problems, err.Error())
	}
	if c.PathMode != PathRelative && c.PathMode != PathAbsolute {
		problems = append(problems, fmt.Sprintf("unknown path mode %q", c.PathMode))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q", c.LogFormat))
	}
	for ext, rt := range c.Runtimes {
		if strings.TrimSpace(rt.Command) == "" {
			problems = append(problems, fmt.Sprintf("runtimes.%s.command is required", ext))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RequireChat checks the settings a chat session needs beyond Validate.
// The server may be chosen later from the REPL.
func (c *Config) RequireChat() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: missing api_key (or ANTHROPIC_API_KEY)", ErrInvalid)
	}
	return nil
}

// RuntimeTable returns the default runtimes with configured overrides
// applied. Override keys may omit the leading dot.
func (c *Config) RuntimeTable() map[string]backend.Runtime {
	table := backend.DefaultRuntimes()
	for ext, rt := range c.Runtimes {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		table[ext] = rt
	}
	return table
}
