package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

// DefaultExecTimeout applies when exec/wait or exec/capture omit timeout_ms.
const DefaultExecTimeout = 30 * time.Second

// resolver turns a request into a session ID.
type resolver func(c *gin.Context) (string, error)

func (h *Handlers) byID(c *gin.Context) (string, error) {
	return c.Param("id"), nil
}

func (h *Handlers) byName(c *gin.Context) (string, error) {
	return h.manager.Resolve(c.Param("name"))
}

// ListTerminals lists sessions in creation order
func (h *Handlers) ListTerminals(c *gin.Context) {
	sessions := h.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"terminals": sessions,
		"count":     len(sessions),
	})
}

// CreateTerminal spawns a session
func (h *Handlers) CreateTerminal(c *gin.Context) {
	var cfg terminal.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.manager.Create(c.Request.Context(), cfg)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.logger.Info("Session created via API",
		zap.String("id", session.ID),
		zap.String("name", session.Name))
	c.JSON(http.StatusCreated, session)
}

// GetTerminal returns one session by ID
func (h *Handlers) GetTerminal(c *gin.Context) {
	h.get(h.byID)(c)
}

// GetTerminalByName returns one session by name
func (h *Handlers) GetTerminalByName(c *gin.Context) {
	h.get(h.byName)(c)
}

func (h *Handlers) get(resolve resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := resolve(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		session, err := h.manager.Get(sessionID)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// KillTerminal kills a session and removes it from the registry
func (h *Handlers) KillTerminal(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.manager.Kill(sessionID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID})
}

// Exec sends a command line to a session by ID
func (h *Handlers) Exec(c *gin.Context) { h.exec(h.byID)(c) }

// ExecByName sends a command line to a session by name
func (h *Handlers) ExecByName(c *gin.Context) { h.exec(h.byName)(c) }

func (h *Handlers) exec(resolve resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExecRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		sessionID, err := resolve(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		if err := h.manager.Exec(sessionID, *req.Command); err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID})
	}
}

// ExecWait runs a command and returns the output gathered during timeout_ms
func (h *Handlers) ExecWait(c *gin.Context) { h.execWait(h.byID)(c) }

// ExecWaitByName is ExecWait addressed by session name
func (h *Handlers) ExecWaitByName(c *gin.Context) { h.execWait(h.byName)(c) }

func (h *Handlers) execWait(resolve resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExecRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		sessionID, err := resolve(c)
		if err != nil {
			RespondError(c, err)
			return
		}

		start := time.Now()
		done := h.tracked.TrackExec("wait")
		output, err := h.manager.ExecWait(c.Request.Context(), sessionID, *req.Command, req.timeout())
		done(err)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id":  sessionID,
			"output":      output,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

// ExecCapture runs a command and returns exactly its output and exit code
func (h *Handlers) ExecCapture(c *gin.Context) {
	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sessionID := c.Param("id")

	done := h.tracked.TrackExec("capture")
	result, err := h.manager.ExecCapture(c.Request.Context(), sessionID, *req.Command, req.timeout())
	done(err)
	if err != nil {
		_ = c.Error(err)
		body := gin.H{"error": err.Error()}
		if errors.Is(err, terminal.ErrTimeout) {
			body["output"] = result.Output
		}
		c.JSON(StatusFor(err), body)
		return
	}

	c.JSON(http.StatusOK, CaptureResponse{
		SessionID:  sessionID,
		Output:     result.Output,
		ExitCode:   result.ExitCode,
		DurationMs: result.Duration.Milliseconds(),
	})
}

func (r ExecRequest) timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return DefaultExecTimeout
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// Write sends raw data to a session by ID
func (h *Handlers) Write(c *gin.Context) { h.write(h.byID)(c) }

// WriteByName sends raw data to a session by name
func (h *Handlers) WriteByName(c *gin.Context) { h.write(h.byName)(c) }

func (h *Handlers) write(resolve resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		sessionID, err := resolve(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		if err := h.manager.Write(sessionID, []byte(*req.Data)); err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID, "bytes": len(*req.Data)})
	}
}

// Resize changes a session's terminal size
func (h *Handlers) Resize(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sessionID := c.Param("id")
	if err := h.manager.Resize(sessionID, req.Cols, req.Rows); err != nil {
		RespondError(c, err)
		return
	}
	session, err := h.manager.Get(sessionID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetBuffer returns captured output lines by session ID
func (h *Handlers) GetBuffer(c *gin.Context) { h.buffer(h.byID)(c) }

// GetBufferByName returns captured output lines by session name
func (h *Handlers) GetBufferByName(c *gin.Context) { h.buffer(h.byName)(c) }

func (h *Handlers) buffer(resolve resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := linesParam(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		sessionID, err := resolve(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		lines, err := h.manager.Buffer(sessionID, limit)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, BufferResponse{SessionID: sessionID, Lines: lines, Count: len(lines)})
	}
}

// FlushBuffer discards captured output
func (h *Handlers) FlushBuffer(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.manager.FlushBuffer(sessionID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID})
}

// linesParam parses ?lines=; absent means all lines and 0 means none.
func linesParam(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("lines")
	if !ok {
		return terminal.AllLines, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("lines must be a non-negative integer")
	}
	return n, nil
}
