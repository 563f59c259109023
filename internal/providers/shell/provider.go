package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/termhost/internal/domain/service"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/shared/types"
)

// ServiceID is the tool prefix this provider owns.
const ServiceID = "terminal"

// Provider exposes the session registry as terminal.* tools.
type Provider struct {
	manager *terminal.Manager
}

// NewProvider creates a terminal tool provider backed by manager.
func NewProvider(manager *terminal.Manager) *Provider {
	return &Provider{manager: manager}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          ServiceID,
		Name:        "Terminal Service",
		Description: "Named interactive shell sessions backed by pseudo-terminals, with buffered output for polling",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"sessions",
			"run_commands",
			"read_output",
			"resize",
		},
		Tools: tools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]any, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.create_session":
		return p.createSession(ctx, params)
	case "terminal.exec":
		return p.exec(params)
	case "terminal.exec_wait":
		return p.execWait(ctx, params)
	case "terminal.exec_capture":
		return p.execCapture(ctx, params)
	case "terminal.write":
		return p.write(params)
	case "terminal.read":
		return p.read(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.get_session":
		return p.getSession(params)
	case "terminal.kill":
		return p.kill(params)
	case "terminal.flush":
		return p.flush(params)
	default:
		return nil, fmt.Errorf("%w: %s", service.ErrUnknownTool, toolID)
	}
}

// sessionID resolves the session_id parameter, falling back to name.
func (p *Provider) sessionID(params map[string]any) (string, error) {
	if id := stringParam(params, "session_id"); id != "" {
		return id, nil
	}
	if name := stringParam(params, "name"); name != "" {
		return p.manager.Resolve(name)
	}
	return "", fmt.Errorf("%w: session_id or name is required", terminal.ErrInvalidConfig)
}

func ok(data map[string]any) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func (p *Provider) createSession(ctx context.Context, params map[string]any) (*types.Result, error) {
	cols, err := intParam(params, "cols", 0)
	if err != nil {
		return nil, err
	}
	rows, err := intParam(params, "rows", 0)
	if err != nil {
		return nil, err
	}

	sess, err := p.manager.Create(ctx, terminal.Config{
		Name:       stringParam(params, "name"),
		Shell:      stringParam(params, "shell"),
		WorkingDir: firstString(params, "cwd", "working_dir"),
		Cols:       cols,
		Rows:       rows,
		Env:        envParam(params, "env"),
	})
	if err != nil {
		return nil, err
	}
	return ok(sessionData(sess))
}

func (p *Provider) exec(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	command, err := presentString(params, "command")
	if err != nil {
		return nil, err
	}
	if err := p.manager.Exec(sessionID, command); err != nil {
		return nil, err
	}
	return ok(map[string]any{"session_id": sessionID})
}

func (p *Provider) execWait(ctx context.Context, params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	command, err := presentString(params, "command")
	if err != nil {
		return nil, err
	}
	timeoutMs, err := intParam(params, "timeout_ms", int(terminal.DefaultExecTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}

	output, err := p.manager.ExecWait(ctx, sessionID, command, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return ok(map[string]any{"session_id": sessionID, "output": output})
}

func (p *Provider) execCapture(ctx context.Context, params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	command, err := presentString(params, "command")
	if err != nil {
		return nil, err
	}
	timeoutMs, err := intParam(params, "timeout_ms", int(terminal.DefaultExecTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}

	res, err := p.manager.ExecCapture(ctx, sessionID, command, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return ok(map[string]any{
		"session_id":  sessionID,
		"output":      res.Output,
		"exit_code":   res.ExitCode,
		"duration_ms": res.Duration.Milliseconds(),
	})
}

func (p *Provider) write(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	input, present := params["input"].(string)
	if !present {
		return nil, fmt.Errorf("%w: input is required", terminal.ErrInvalidConfig)
	}
	if err := p.manager.Write(sessionID, []byte(input)); err != nil {
		return nil, err
	}
	return ok(map[string]any{"session_id": sessionID, "bytes": len(input)})
}

func (p *Provider) read(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(params, "lines", terminal.AllLines)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: lines must not be negative", terminal.ErrInvalidConfig)
	}

	lines, err := p.manager.Buffer(sessionID, limit)
	if err != nil {
		return nil, err
	}
	return ok(map[string]any{
		"session_id": sessionID,
		"lines":      lines,
		"output":     strings.Join(lines, "\n"),
		"count":      len(lines),
	})
}

func (p *Provider) resize(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	cols, err := intParam(params, "cols", -1)
	if err != nil {
		return nil, err
	}
	rows, err := intParam(params, "rows", -1)
	if err != nil {
		return nil, err
	}
	if cols < 0 || rows < 0 {
		return nil, fmt.Errorf("%w: cols and rows are required", terminal.ErrInvalidConfig)
	}

	if err := p.manager.Resize(sessionID, cols, rows); err != nil {
		return nil, err
	}
	return ok(map[string]any{"session_id": sessionID, "cols": cols, "rows": rows})
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.manager.List()
	data := make([]map[string]any, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, sessionData(s))
	}
	return ok(map[string]any{"sessions": data, "count": len(data)})
}

func (p *Provider) getSession(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	sess, err := p.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return ok(sessionData(sess))
}

func (p *Provider) kill(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	if err := p.manager.Kill(sessionID); err != nil {
		return nil, err
	}
	return ok(map[string]any{"session_id": sessionID, "killed": true})
}

func (p *Provider) flush(params map[string]any) (*types.Result, error) {
	sessionID, err := p.sessionID(params)
	if err != nil {
		return nil, err
	}
	if err := p.manager.FlushBuffer(sessionID); err != nil {
		return nil, err
	}
	return ok(map[string]any{"session_id": sessionID, "flushed": true})
}

func sessionData(s terminal.Session) map[string]any {
	data := map[string]any{
		"id":            s.ID,
		"name":          s.Name,
		"shell":         s.Shell,
		"cwd":           s.WorkingDir,
		"cols":          s.Cols,
		"rows":          s.Rows,
		"status":        string(s.Status),
		"created_at":    s.CreatedAt,
		"last_activity": s.LastActivity,
	}
	if s.StatusReason != "" {
		data["status_reason"] = s.StatusReason
	}
	if s.PID != nil {
		data["pid"] = *s.PID
	}
	return data
}
