package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
)

// bridge owns the write side of one connection. gorilla/websocket allows a
// single concurrent writer, so every write goes through mu.
type bridge struct {
	conn    *websocket.Conn
	format  Format
	metrics *monitoring.Metrics

	mu    sync.Mutex
	carry utf8Carry

	done chan struct{}
	once sync.Once
}

func newBridge(conn *websocket.Conn, format Format, metrics *monitoring.Metrics) *bridge {
	return &bridge{
		conn:    conn,
		format:  format,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// shutdown stops both flows and closes the connection. It is idempotent.
func (b *bridge) shutdown() {
	b.once.Do(func() {
		close(b.done)
		_ = b.conn.Close()
	})
}

func (b *bridge) stopped() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *bridge) record(direction, msgType string) {
	if b.metrics != nil {
		b.metrics.RecordWSMessage(direction, msgType)
	}
}

func (b *bridge) write(msgType int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteMessage(msgType, data)
}

func (b *bridge) sendOutput(text string) error {
	if text == "" {
		return nil
	}
	b.record("out", typeOutput)
	if b.format != FormatJSON {
		return b.write(websocket.TextMessage, []byte(text))
	}
	payload, err := encodeEnvelope(Envelope{Type: typeOutput, Data: text})
	if err != nil {
		return err
	}
	return b.write(websocket.TextMessage, payload)
}

func (b *bridge) closeWith(code int, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

// pumpOutput forwards session output until the session ends or the bridge
// shuts down. When the session ends it sends the exit envelope (JSON format)
// and a normal close frame.
func (b *bridge) pumpOutput(output <-chan []byte) {
	for {
		select {
		case <-b.done:
			return
		case chunk, ok := <-output:
			if !ok {
				b.finish()
				return
			}
			if err := b.sendOutput(b.carry.text(chunk)); err != nil {
				b.shutdown()
				return
			}
		}
	}
}

func (b *bridge) finish() {
	if b.stopped() {
		return
	}
	if err := b.sendOutput(b.carry.flush()); err != nil {
		b.shutdown()
		return
	}
	if b.format == FormatJSON {
		b.record("out", typeExit)
		if payload, err := encodeEnvelope(Envelope{Type: typeExit}); err == nil {
			_ = b.write(websocket.TextMessage, payload)
		}
	}
	b.closeWith(websocket.CloseNormalClosure, "session ended")
	b.shutdown()
}

func (b *bridge) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.mu.Lock()
			err := b.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			b.mu.Unlock()
			if err != nil {
				b.shutdown()
				return
			}
		}
	}
}
