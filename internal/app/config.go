package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/raysh454/a11ylens/internal/audit"
	"github.com/raysh454/a11ylens/internal/browser"
	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/highlight"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/scan"
	"github.com/raysh454/a11ylens/internal/server"
	"github.com/raysh454/a11ylens/internal/webclient"
)

// EnvPrefix prefixes environment overrides of config keys, e.g.
// A11YLENS_SERVER_LISTEN_ADDR.
const EnvPrefix = "A11YLENS"

// Config aggregates the configuration of every component.
type Config struct {
	// Enabled is the host's switch for the overlay, ANDed with the
	// environment check.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Log       LogConfig        `mapstructure:"log" yaml:"log"`
	Browser   browser.Config   `mapstructure:"browser" yaml:"browser"`
	Audit     audit.Config     `mapstructure:"audit" yaml:"audit"`
	WebClient webclient.Config `mapstructure:"webclient" yaml:"webclient"`
	Scan      scan.Config      `mapstructure:"scan" yaml:"scan"`
	Highlight highlight.Config `mapstructure:"highlight" yaml:"highlight"`
	Env       env.Config       `mapstructure:"env" yaml:"env"`
	Server    server.Config    `mapstructure:"server" yaml:"server"`
	History   HistoryConfig    `mapstructure:"history" yaml:"history"`

	// WindowEnvTimeout bounds the read of the page's injected environment.
	WindowEnvTimeout time.Duration `mapstructure:"window_env_timeout" yaml:"window_env_timeout"`
}

type LogConfig struct {
	// Format is "json" for the built-in logger or "zap".
	Format string `mapstructure:"format" yaml:"format"`
	Level  string `mapstructure:"level" yaml:"level"`

	// Output is "stdout" or "stderr".
	Output string `mapstructure:"output" yaml:"output"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path of the SQLite database; a leading ~ expands to the home directory.
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Log:       LogConfig{Format: "json", Level: "info", Output: "stderr"},
		Browser:   browser.DefaultConfig(),
		Audit:     audit.DefaultConfig(),
		WebClient: webclient.DefaultConfig(),
		Scan:      scan.DefaultConfig(),
		Highlight: highlight.DefaultConfig(),
		Env:       env.DefaultConfig(),
		Server:    server.DefaultConfig(),
		History: HistoryConfig{
			Enabled: true,
			Path:    "~/.config/a11ylens/history.db",
		},
		WindowEnvTimeout: 2 * time.Second,
	}
}

// LoadConfig layers, lowest first: DefaultConfig, the YAML file at path (if
// path is non-empty) and A11YLENS_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	base, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	// viper lowercases map keys; variable names are matched upper-case.
	if len(cfg.Env.Vars) > 0 {
		vars := make(map[string]string, len(cfg.Env.Vars))
		for k, val := range cfg.Env.Vars {
			vars[strings.ToUpper(k)] = val
		}
		cfg.Env.Vars = vars
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "", "json", "zap":
	default:
		return fmt.Errorf("log.format must be json or zap, got %q", c.Log.Format)
	}
	switch c.Log.Output {
	case "", "stdout", "stderr":
	default:
		return fmt.Errorf("log.output must be stdout or stderr, got %q", c.Log.Output)
	}
	if c.Audit.ScriptPath == "" && c.Audit.ScriptURL == "" {
		return fmt.Errorf("audit.script_path or audit.script_url is required")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	return nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// NewLogger builds the logger selected by cfg.
func NewLogger(cfg LogConfig, component string) (logging.Logger, error) {
	out := os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}
	switch cfg.Format {
	case "zap":
		zl, err := logging.NewZapLogger(cfg.Level, cfg.Output)
		if err != nil {
			return nil, err
		}
		return zl.With(logging.Field{Key: "component", Value: component}), nil
	default:
		return logging.NewWriterLogger(component, logging.ParseLevel(cfg.Level), out), nil
	}
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
