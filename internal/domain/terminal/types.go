package terminal

import (
	"time"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal/buffer"
)

// AllLines asks Buffer for every retained line.
const AllLines = -1

// Status is the lifecycle state of a session.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusIdle     Status = "idle"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusError
}

// Session is a point-in-time snapshot of a session's metadata.
type Session struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	WorkingDir   string    `json:"cwd"`
	Shell        string    `json:"shell"`
	Cols         int       `json:"cols"`
	Rows         int       `json:"rows"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Status       Status    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	PID          *int      `json:"pid,omitempty"`
}

// Config describes a session to create. Zero values fall back to Options.
type Config struct {
	Name       string            `json:"name"`
	WorkingDir string            `json:"cwd,omitempty"`
	Shell      string            `json:"shell,omitempty"`
	Cols       int               `json:"cols,omitempty"`
	Rows       int               `json:"rows,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

// Options configures a Manager.
type Options struct {
	// WorkspaceRoot is the default working directory; relative session
	// directories are resolved against it.
	WorkspaceRoot string
	MaxSessions   int
	DefaultShell  string
	DefaultCols   int
	DefaultRows   int
	BufferLines   int
	// IdleAfter reports a running session as idle after this long without
	// input or output. Zero disables idle reporting.
	IdleAfter time.Duration
	// AllowedShells are doublestar glob patterns; empty allows any shell.
	AllowedShells []string
	// PollInterval is the ExecWait / ExecCapture polling period.
	PollInterval time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		WorkspaceRoot: ".",
		MaxSessions:   10,
		DefaultShell:  "/bin/bash",
		DefaultCols:   120,
		DefaultRows:   40,
		BufferLines:   buffer.DefaultCapacity,
		IdleAfter:     30 * time.Second,
		PollInterval:  50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WorkspaceRoot == "" {
		o.WorkspaceRoot = d.WorkspaceRoot
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = d.MaxSessions
	}
	if o.DefaultShell == "" {
		o.DefaultShell = d.DefaultShell
	}
	if o.DefaultCols <= 0 {
		o.DefaultCols = d.DefaultCols
	}
	if o.DefaultRows <= 0 {
		o.DefaultRows = d.DefaultRows
	}
	if o.BufferLines <= 0 {
		o.BufferLines = d.BufferLines
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}

// CaptureResult is the outcome of ExecCapture.
type CaptureResult struct {
	Output   string        `json:"output"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}
