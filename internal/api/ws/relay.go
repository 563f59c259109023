package ws

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/termhost/internal/api/http"
	"github.com/GriffinCanCode/termhost/internal/api/middleware"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// RelayNamePrefix names sessions spawned by the relay.
	RelayNamePrefix = "relay-"
)

// Relay bridges WebSocket clients to terminal sessions.
type Relay struct {
	manager  *terminal.Manager
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewRelay creates a relay. Handshakes are accepted from the origins cors
// allows. metrics may be nil.
func NewRelay(manager *terminal.Manager, metrics *monitoring.Metrics, cors middleware.CORSConfig, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		manager: manager,
		metrics: metrics,
		logger:  logger.Named("relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return cors.OriginAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// Register mounts the WebSocket routes.
func (r *Relay) Register(router gin.IRouter) {
	router.GET("/ws/terminal", r.HandleSpawn)
	router.GET("/api/terminals/:id/stream", r.HandleAttach)
}

// HandleSpawn creates a session for the connection and kills it when the
// connection ends.
func (r *Relay) HandleSpawn(c *gin.Context) {
	format, ok := parseFormat(c.Query("format"))
	if !ok {
		api.RespondError(c, errUnsupportedFormat(c.Query("format")))
		return
	}
	cols, err := queryInt(c, "cols")
	if err != nil {
		api.RespondError(c, err)
		return
	}
	rows, err := queryInt(c, "rows")
	if err != nil {
		api.RespondError(c, err)
		return
	}

	session, err := r.manager.Create(c.Request.Context(), terminal.Config{
		Name:       RelayNamePrefix + uuid.NewString(),
		Shell:      c.Query("shell"),
		WorkingDir: c.Query("cwd"),
		Cols:       cols,
		Rows:       rows,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		r.logger.Warn("WebSocket upgrade failed", zap.String("session_id", session.ID), zap.Error(err))
		r.kill(session.ID)
		return
	}

	r.serve(conn, session, format, 0, true)
}

// HandleAttach bridges the connection to an existing session. Disconnecting
// only detaches; the session keeps running.
func (r *Relay) HandleAttach(c *gin.Context) {
	format, ok := parseFormat(c.Query("format"))
	if !ok {
		api.RespondError(c, errUnsupportedFormat(c.Query("format")))
		return
	}
	replay, err := queryInt(c, "replay")
	if err != nil {
		api.RespondError(c, err)
		return
	}
	session, err := r.manager.Get(c.Param("id"))
	if err != nil {
		api.RespondError(c, err)
		return
	}

	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Warn("WebSocket upgrade failed", zap.String("session_id", session.ID), zap.Error(err))
		return
	}

	r.serve(conn, session, format, replay, false)
}

// serve runs one connection until either side ends it. owned sessions are
// killed on teardown.
func (r *Relay) serve(conn *websocket.Conn, session terminal.Session, format Format, replay int, owned bool) {
	logger := r.logger.With(
		zap.String("session_id", session.ID),
		zap.String("name", session.Name),
		zap.Bool("owned", owned))

	b := newBridge(conn, format, r.metrics)
	if r.metrics != nil {
		r.metrics.IncWSConnections()
		defer r.metrics.DecWSConnections()
	}

	subID, output, err := r.manager.Subscribe(session.ID)
	if err != nil {
		logger.Warn("Subscribe failed", zap.Error(err))
		b.closeWith(websocket.CloseInternalServerErr, err.Error())
		b.shutdown()
		if owned {
			r.kill(session.ID)
		}
		return
	}
	logger.Info("Relay connected")

	var wg sync.WaitGroup
	defer func() {
		b.shutdown()
		r.manager.Unsubscribe(session.ID, subID)
		wg.Wait()
		if owned {
			r.kill(session.ID)
		}
		logger.Info("Relay disconnected")
	}()

	if replay > 0 {
		if err := r.replay(b, session.ID, replay); err != nil {
			logger.Debug("Replay failed", zap.Error(err))
			return
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		b.pumpOutput(output)
	}()
	go func() {
		defer wg.Done()
		b.pingLoop()
	}()

	r.readLoop(b, session.ID, logger)
}

func (r *Relay) replay(b *bridge, sessionID string, n int) error {
	lines, err := r.manager.Buffer(sessionID, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := b.sendOutput(line + "\r\n"); err != nil {
			return err
		}
	}
	return nil
}

// readLoop forwards client frames to the session until the connection fails.
func (r *Relay) readLoop(b *bridge, sessionID string, logger *zap.Logger) {
	conn := b.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !b.stopped() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var input []byte
		switch msgType {
		case websocket.BinaryMessage:
			b.record("in", "binary")
			input = data
		case websocket.TextMessage:
			b.record("in", "text")
			act := parseText(data)
			if act.resize {
				if err := r.manager.Resize(sessionID, act.cols, act.rows); err != nil {
					if terminal.IsNotFound(err) {
						return
					}
					logger.Debug("Resize rejected", zap.Int("cols", act.cols), zap.Int("rows", act.rows), zap.Error(err))
				}
				continue
			}
			input = act.write
		default:
			continue
		}

		if len(input) == 0 {
			continue
		}
		if err := r.manager.Write(sessionID, input); err != nil {
			logger.Debug("Write to session failed", zap.Error(err))
			return
		}
	}
}

func (r *Relay) kill(sessionID string) {
	if err := r.manager.Kill(sessionID); err != nil && !terminal.IsNotFound(err) {
		r.logger.Warn("Failed to kill relay session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", terminal.ErrInvalidConfig, key)
	}
	return n, nil
}

func errUnsupportedFormat(format string) error {
	return fmt.Errorf("%w: unsupported format %q", terminal.ErrInvalidConfig, format)
}
