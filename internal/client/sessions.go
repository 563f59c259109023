package client

import (
	"context"
	"net/http"
	"time"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/shared/types"
)

// CaptureResult is the response of ExecCapture.
type CaptureResult struct {
	SessionID  string `json:"session_id"`
	Output     string `json:"output"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

type listResponse struct {
	Terminals []terminal.Session `json:"terminals"`
	Count     int                `json:"count"`
}

type bufferResponse struct {
	SessionID string   `json:"session_id"`
	Lines     []string `json:"lines"`
	Count     int      `json:"count"`
}

type waitResponse struct {
	SessionID  string `json:"session_id"`
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
}

type execBody struct {
	Command   string `json:"command"`
	TimeoutMs int64  `json:"timeout_ms,omitempty"`
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, call{method: http.MethodGet, path: "/health", out: &out})
	return out, err
}

// List returns all sessions in creation order.
func (c *Client) List(ctx context.Context) ([]terminal.Session, error) {
	var out listResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/terminals", out: &out}); err != nil {
		return nil, err
	}
	return out.Terminals, nil
}

// Create spawns a session.
func (c *Client) Create(ctx context.Context, cfg terminal.Config) (terminal.Session, error) {
	var out terminal.Session
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/terminals", body: cfg, out: &out})
	return out, err
}

// Get returns a session by ID.
func (c *Client) Get(ctx context.Context, sessionID string) (terminal.Session, error) {
	var out terminal.Session
	err := c.do(ctx, call{method: http.MethodGet, path: sessionPath(sessionID), out: &out})
	return out, err
}

// GetByName returns a session by name.
func (c *Client) GetByName(ctx context.Context, name string) (terminal.Session, error) {
	var out terminal.Session
	err := c.do(ctx, call{method: http.MethodGet, path: namePath(name), out: &out})
	return out, err
}

// Kill terminates a session.
func (c *Client) Kill(ctx context.Context, sessionID string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: sessionPath(sessionID)})
}

// Exec sends a command line without waiting for output.
func (c *Client) Exec(ctx context.Context, sessionID, command string) error {
	return c.do(ctx, call{method: http.MethodPost, path: sessionPath(sessionID, "exec"), body: execBody{Command: command}})
}

// ExecByName is Exec addressed by session name.
func (c *Client) ExecByName(ctx context.Context, name, command string) error {
	return c.do(ctx, call{method: http.MethodPost, path: namePath(name, "exec"), body: execBody{Command: command}})
}

// ExecWait runs a command and returns the output produced within timeout.
// A zero timeout uses the server default.
func (c *Client) ExecWait(ctx context.Context, sessionID, command string, timeout time.Duration) (string, error) {
	return c.execWait(ctx, sessionPath(sessionID, "exec", "wait"), command, timeout)
}

// ExecWaitByName is ExecWait addressed by session name.
func (c *Client) ExecWaitByName(ctx context.Context, name, command string, timeout time.Duration) (string, error) {
	return c.execWait(ctx, namePath(name, "exec", "wait"), command, timeout)
}

func (c *Client) execWait(ctx context.Context, path, command string, timeout time.Duration) (string, error) {
	var out waitResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   path,
		body:   execBody{Command: command, TimeoutMs: timeout.Milliseconds()},
		out:    &out,
		wait:   serverWait(timeout),
	})
	return out.Output, err
}

// ExecCapture runs a command and returns its exact output and exit code.
func (c *Client) ExecCapture(ctx context.Context, sessionID, command string, timeout time.Duration) (CaptureResult, error) {
	var out CaptureResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   sessionPath(sessionID, "exec", "capture"),
		body:   execBody{Command: command, TimeoutMs: timeout.Milliseconds()},
		out:    &out,
		wait:   serverWait(timeout),
	})
	return out, err
}

func serverWait(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 30 * time.Second
	}
	return timeout
}

// Write sends raw data to a session.
func (c *Client) Write(ctx context.Context, sessionID, data string) error {
	return c.do(ctx, call{method: http.MethodPost, path: sessionPath(sessionID, "write"), body: map[string]string{"data": data}})
}

// WriteByName is Write addressed by session name.
func (c *Client) WriteByName(ctx context.Context, name, data string) error {
	return c.do(ctx, call{method: http.MethodPost, path: namePath(name, "write"), body: map[string]string{"data": data}})
}

// Resize changes a session's terminal size and returns the updated session.
func (c *Client) Resize(ctx context.Context, sessionID string, cols, rows int) (terminal.Session, error) {
	var out terminal.Session
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   sessionPath(sessionID, "resize"),
		body:   map[string]int{"cols": cols, "rows": rows},
		out:    &out,
	})
	return out, err
}

// Buffer returns the last lines of captured output, or all of it when
// lines is negative (AllLines).
func (c *Client) Buffer(ctx context.Context, sessionID string, lines int) ([]string, error) {
	var out bufferResponse
	err := c.do(ctx, call{method: http.MethodGet, path: sessionPath(sessionID, "buffer"), query: linesQuery(lines), out: &out})
	return out.Lines, err
}

// BufferByName is Buffer addressed by session name.
func (c *Client) BufferByName(ctx context.Context, name string, lines int) ([]string, error) {
	var out bufferResponse
	err := c.do(ctx, call{method: http.MethodGet, path: namePath(name, "buffer"), query: linesQuery(lines), out: &out})
	return out.Lines, err
}

// Flush discards a session's captured output.
func (c *Client) Flush(ctx context.Context, sessionID string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: sessionPath(sessionID, "buffer")})
}

// Services lists the tool services the server exposes.
func (c *Client) Services(ctx context.Context) ([]types.Service, error) {
	var out struct {
		Services []types.Service `json:"services"`
	}
	err := c.do(ctx, call{method: http.MethodGet, path: "/services", out: &out})
	return out.Services, err
}

// ExecuteTool runs a service tool such as terminal.exec_wait.
func (c *Client) ExecuteTool(ctx context.Context, toolID string, params map[string]any) (*types.Result, error) {
	var out types.Result
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/services/execute",
		body:   types.ExecuteRequest{ToolID: toolID, Params: params},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
