package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Terminal config
	assert.Equal(t, ".", cfg.Terminal.Workspace)
	assert.Equal(t, 10, cfg.Terminal.MaxSessions)
	assert.Equal(t, "/bin/zsh", cfg.Terminal.Shell)
	assert.Equal(t, 120, cfg.Terminal.Cols)
	assert.Equal(t, 40, cfg.Terminal.Rows)
	assert.Equal(t, 10000, cfg.Terminal.BufferLines)
	assert.Equal(t, 30*time.Second, cfg.Terminal.IdleAfter.Std())
	assert.Empty(t, cfg.Terminal.AllowedShells)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestDefaultShellFallback(t *testing.T) {
	t.Setenv("SHELL", "")
	assert.Equal(t, "/bin/bash", Default().Terminal.Shell)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_RPS":          "500",
		"RATE_LIMIT_BURST":        "1000",
		"RATE_LIMIT_ENABLED":      "false",
		"CORS_ORIGINS":            "http://a.test,http://b.test",
		"TERMINAL_WORKSPACE":      "/tmp",
		"TERMINAL_MAX_SESSIONS":   "3",
		"TERMINAL_SHELL":          "/bin/sh",
		"TERMINAL_COLS":           "100",
		"TERMINAL_ROWS":           "30",
		"TERMINAL_BUFFER_LINES":   "500",
		"TERMINAL_IDLE_AFTER":     "2m",
		"TERMINAL_ALLOWED_SHELLS": "/bin/*sh,/usr/bin/*sh",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)

	assert.Equal(t, "/tmp", cfg.Terminal.Workspace)
	assert.Equal(t, 3, cfg.Terminal.MaxSessions)
	assert.Equal(t, "/bin/sh", cfg.Terminal.Shell)
	assert.Equal(t, 100, cfg.Terminal.Cols)
	assert.Equal(t, 30, cfg.Terminal.Rows)
	assert.Equal(t, 500, cfg.Terminal.BufferLines)
	assert.Equal(t, 2*time.Minute, cfg.Terminal.IdleAfter.Std())
	assert.Equal(t, []string{"/bin/*sh", "/usr/bin/*sh"}, cfg.Terminal.AllowedShells)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric sessions", "TERMINAL_MAX_SESSIONS", "many"},
		{"zero sessions", "TERMINAL_MAX_SESSIONS", "0"},
		{"bad duration", "TERMINAL_IDLE_AFTER", "soon"},
		{"zero buffer", "TERMINAL_BUFFER_LINES", "0"},
		{"bad bool", "RATE_LIMIT_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termhost.toml")
	content := `
[server]
port = "7000"

[terminal]
max_sessions = 5
shell = "/bin/sh"
idle_after = "45s"
allowed_shells = ["/bin/sh"]

[rate_limit]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "keys missing from the file keep defaults")
	assert.Equal(t, 5, cfg.Terminal.MaxSessions)
	assert.Equal(t, "/bin/sh", cfg.Terminal.Shell)
	assert.Equal(t, 45*time.Second, cfg.Terminal.IdleAfter.Std())
	assert.Equal(t, []string{"/bin/sh"}, cfg.Terminal.AllowedShells)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.Terminal.Cols)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termhost.yaml")
	content := `
server:
  host: 127.0.0.1
terminal:
  cols: 80
  rows: 24
  buffer_lines: 2000
logging:
  level: warn
cors:
  origins:
    - http://localhost:3000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 80, cfg.Terminal.Cols)
	assert.Equal(t, 24, cfg.Terminal.Rows)
	assert.Equal(t, 2000, cfg.Terminal.BufferLines)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termhost.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \"7000\"\n"), 0o600))
	t.Setenv("PORT", "7100")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Server.Port)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadWithFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "termhost.ini")
	require.NoError(t, os.WriteFile(ini, []byte("port=1"), 0o600))
	_, err = LoadWithFile(ini)
	assert.ErrorContains(t, err, "unsupported")

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[server\nport="), 0o600))
	_, err = LoadWithFile(broken)
	assert.Error(t, err)
}

func TestConfigFileFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termhost.yml")
	require.NoError(t, os.WriteFile(path, []byte("terminal:\n  max_sessions: 7\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Terminal.MaxSessions)
}

func TestTerminalOptions(t *testing.T) {
	cfg := Default()
	cfg.Terminal.Workspace = "."
	cfg.Terminal.Shell = "/bin/sh"
	cfg.Terminal.MaxSessions = 2
	cfg.Terminal.IdleAfter = Duration(time.Minute)
	cfg.Terminal.AllowedShells = []string{"/bin/*"}

	opts, err := cfg.TerminalOptions()
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, opts.WorkspaceRoot)
	assert.Equal(t, "/bin/sh", opts.DefaultShell)
	assert.Equal(t, 2, opts.MaxSessions)
	assert.Equal(t, time.Minute, opts.IdleAfter)
	assert.Equal(t, []string{"/bin/*"}, opts.AllowedShells)
	assert.Equal(t, 50*time.Millisecond, opts.PollInterval)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("ninety")))
}
