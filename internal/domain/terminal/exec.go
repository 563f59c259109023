package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/termhost/internal/shared/id"
)

const (
	// DefaultExecTimeout applies when ExecWait or ExecCapture get no timeout.
	DefaultExecTimeout = 30 * time.Second
	// execWaitLines is how many recent lines an ExecWait snapshot covers.
	execWaitLines = 100

	captureMarker = "__termhost_done"
)

// ExecWait runs command and returns the most recent output observed when
// timeout elapses.
//
// It does not detect command completion: it waits the full timeout and
// returns the last non-empty snapshot of up to 100 lines joined by "\n".
// It stops early with an error if ctx ends or the session is killed. Use
// ExecCapture when the command's own output and exit status matter.
func (m *Manager) ExecWait(ctx context.Context, sessionID, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	if err := m.Exec(sessionID, command); err != nil {
		return "", err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	var output string
	poll := func() error {
		rec, err := m.lookup(sessionID)
		if err != nil {
			return err
		}
		if lines := rec.buf.Recent(execWaitLines); len(lines) > 0 {
			output = strings.Join(lines, "\n")
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return output, ctx.Err()
		case <-deadline.C:
			return output, poll()
		case <-ticker.C:
			if err := poll(); err != nil {
				return output, err
			}
		}
	}
}

// ExecWaitByName is ExecWait addressed by session name.
func (m *Manager) ExecWaitByName(ctx context.Context, name, command string, timeout time.Duration) (string, error) {
	sessionID, err := m.Resolve(name)
	if err != nil {
		return "", err
	}
	return m.ExecWait(ctx, sessionID, command, timeout)
}

// ExecCapture runs command followed by a printf sentinel and returns the lines
// the command produced together with its exit status. It needs a POSIX shell.
//
// On timeout it returns ErrTimeout along with whatever output was seen.
func (m *Manager) ExecCapture(ctx context.Context, sessionID, command string, timeout time.Duration) (CaptureResult, error) {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	rec, err := m.lookup(sessionID)
	if err != nil {
		return CaptureResult{}, err
	}

	nonce := strings.ToLower(id.Default().GenerateString()[16:])
	marker := captureMarker + "_" + nonce
	// eval keeps backgrounded, empty and ;-terminated commands valid in front
	// of the marker. The marker is assembled by printf so the echoed input
	// never matches it.
	line := fmt.Sprintf("eval %s; printf '\\n%%s_%%s %%d\\n' %s %s $?",
		shellQuote(strings.TrimSpace(command)), captureMarker, nonce)

	start := time.Now()
	from := rec.buf.Total()
	if err := m.Exec(sessionID, line); err != nil {
		return CaptureResult{}, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	var seen []string
	for {
		select {
		case <-ctx.Done():
			return CaptureResult{Output: cleanCapture(seen, nonce), ExitCode: -1, Duration: time.Since(start)}, ctx.Err()
		case <-deadline.C:
			return CaptureResult{Output: cleanCapture(seen, nonce), ExitCode: -1, Duration: time.Since(start)},
				fmt.Errorf("%w: %s after %s", ErrTimeout, sessionID, timeout)
		case <-ticker.C:
			seen, _ = rec.buf.Since(from)
			for i, l := range seen {
				if code, ok := parseMarker(l, marker); ok {
					return CaptureResult{
						Output:   cleanCapture(seen[:i], nonce),
						ExitCode: code,
						Duration: time.Since(start),
					}, nil
				}
			}
			if rec.status().Terminal() {
				return CaptureResult{Output: cleanCapture(seen, nonce), ExitCode: -1, Duration: time.Since(start)},
					fmt.Errorf("%w: %s exited before the command finished", ErrIO, sessionID)
			}
		}
	}
}

// shellQuote single-quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func parseMarker(line, marker string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), marker+" ")
	if !ok {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return code, true
}

// cleanCapture drops the echoed command line and the blank line printf adds
// in front of the marker.
func cleanCapture(lines []string, nonce string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.Contains(l, nonce) {
			continue
		}
		out = append(out, l)
	}
	if n := len(out); n > 0 && out[n-1] == "" {
		out = out[:n-1]
	}
	return strings.Join(out, "\n")
}
