package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

// Config holds all application configuration.
//
// Fields carry no envconfig defaults: Default supplies them, a config file may
// override them, and only variables that are actually set override that.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Terminal  TerminalConfig  `toml:"terminal" yaml:"terminal"`
	Logging   LogConfig       `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	CORS      CORSConfig      `toml:"cors" yaml:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port" yaml:"port"`
	Host string `envconfig:"HOST" toml:"host" yaml:"host"`
}

// TerminalConfig holds session registry configuration.
type TerminalConfig struct {
	Workspace     string   `envconfig:"TERMINAL_WORKSPACE" toml:"workspace" yaml:"workspace"`
	MaxSessions   int      `envconfig:"TERMINAL_MAX_SESSIONS" toml:"max_sessions" yaml:"max_sessions"`
	Shell         string   `envconfig:"TERMINAL_SHELL" toml:"shell" yaml:"shell"`
	Cols          int      `envconfig:"TERMINAL_COLS" toml:"cols" yaml:"cols"`
	Rows          int      `envconfig:"TERMINAL_ROWS" toml:"rows" yaml:"rows"`
	BufferLines   int      `envconfig:"TERMINAL_BUFFER_LINES" toml:"buffer_lines" yaml:"buffer_lines"`
	IdleAfter     Duration `envconfig:"TERMINAL_IDLE_AFTER" toml:"idle_after" yaml:"idle_after"`
	AllowedShells []string `envconfig:"TERMINAL_ALLOWED_SHELLS" toml:"allowed_shells" yaml:"allowed_shells"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"rps" yaml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled" yaml:"enabled"`
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" toml:"origins" yaml:"origins"`
}

// Duration is a time.Duration that reads from strings like "30s" in
// environment variables and config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load builds configuration from defaults, the optional file named by
// CONFIG_FILE, and environment variables, in that order.
func Load() (*Config, error) {
	return LoadWithFile(os.Getenv("CONFIG_FILE"))
}

// LoadWithFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadWithFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	defaults := terminal.DefaultOptions()

	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Terminal: TerminalConfig{
			Workspace:   ".",
			MaxSessions: defaults.MaxSessions,
			Shell:       shell,
			Cols:        defaults.DefaultCols,
			Rows:        defaults.DefaultRows,
			BufferLines: defaults.BufferLines,
			IdleAfter:   Duration(defaults.IdleAfter),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("invalid config: port is required")
	case c.Terminal.MaxSessions < 1:
		return fmt.Errorf("invalid config: terminal max sessions must be positive, got %d", c.Terminal.MaxSessions)
	case c.Terminal.Cols < 1 || c.Terminal.Rows < 1:
		return fmt.Errorf("invalid config: terminal size %dx%d", c.Terminal.Cols, c.Terminal.Rows)
	case c.Terminal.BufferLines < 1:
		return fmt.Errorf("invalid config: terminal buffer lines must be positive, got %d", c.Terminal.BufferLines)
	case c.Terminal.IdleAfter < 0:
		return fmt.Errorf("invalid config: negative idle threshold")
	case c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1):
		return fmt.Errorf("invalid config: rate limit requires positive rps and burst")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TerminalOptions converts the terminal section into registry options. The
// workspace is made absolute.
func (c *Config) TerminalOptions() (terminal.Options, error) {
	workspace, err := filepath.Abs(c.Terminal.Workspace)
	if err != nil {
		return terminal.Options{}, fmt.Errorf("resolve workspace %q: %w", c.Terminal.Workspace, err)
	}

	opts := terminal.DefaultOptions()
	opts.WorkspaceRoot = workspace
	opts.MaxSessions = c.Terminal.MaxSessions
	opts.DefaultShell = c.Terminal.Shell
	opts.DefaultCols = c.Terminal.Cols
	opts.DefaultRows = c.Terminal.Rows
	opts.BufferLines = c.Terminal.BufferLines
	opts.IdleAfter = c.Terminal.IdleAfter.Std()
	opts.AllowedShells = c.Terminal.AllowedShells
	return opts, nil
}
