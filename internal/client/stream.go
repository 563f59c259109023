package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/termhost/internal/infrastructure/tracing"
)

// StreamOptions selects how a relay connection behaves.
type StreamOptions struct {
	// Replay asks for the last N buffered lines before live output.
	Replay int
	// JSON asks for {"type":"output"} envelopes instead of raw text.
	JSON bool
}

// Attach connects to an existing session's relay stream. Closing the
// connection detaches without killing the session.
func (c *Client) Attach(ctx context.Context, sessionID string, opts StreamOptions) (*websocket.Conn, error) {
	q := url.Values{}
	if opts.Replay > 0 {
		q.Set("replay", strconv.Itoa(opts.Replay))
	}
	if opts.JSON {
		q.Set("format", "json")
	}
	return c.dial(ctx, sessionPath(sessionID, "stream"), q)
}

// Spawn opens a relay connection backed by a new session that is killed
// when the connection closes.
func (c *Client) Spawn(ctx context.Context, cfg SpawnConfig, opts StreamOptions) (*websocket.Conn, error) {
	q := url.Values{}
	if cfg.Shell != "" {
		q.Set("shell", cfg.Shell)
	}
	if cfg.WorkingDir != "" {
		q.Set("cwd", cfg.WorkingDir)
	}
	if cfg.Cols > 0 {
		q.Set("cols", strconv.Itoa(cfg.Cols))
	}
	if cfg.Rows > 0 {
		q.Set("rows", strconv.Itoa(cfg.Rows))
	}
	if opts.JSON {
		q.Set("format", "json")
	}
	return c.dial(ctx, "/ws/terminal", q)
}

// SpawnConfig describes the session behind a Spawn connection.
type SpawnConfig struct {
	Shell      string
	WorkingDir string
	Cols       int
	Rows       int
}

func (c *Client) dial(ctx context.Context, path string, q url.Values) (*websocket.Conn, error) {
	target, err := wsURL(c.baseURL, path, q)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	tracing.Inject(ctx, header)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := &APIError{StatusCode: resp.StatusCode}
			_ = decodeError(body, apiErr)
			return nil, apiErr
		}
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return conn, nil
}

func wsURL(base, path string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String(), nil
}
