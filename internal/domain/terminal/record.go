package terminal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal/buffer"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal/process"
)

// subscriberBuffer is the number of output chunks queued per subscriber
// before new chunks are dropped for it.
const subscriberBuffer = 256

// record binds a session's metadata to its process and output capture.
// The Manager is its only owner.
type record struct {
	mu   sync.RWMutex
	info Session

	proc *process.Process
	buf  *buffer.Buffer

	lastActivity atomic.Int64 // unix nanos

	subMu      sync.Mutex
	subs       map[string]chan []byte
	subsClosed bool

	readerDone chan struct{}
}

func newRecord(info Session, proc *process.Process, buf *buffer.Buffer) *record {
	rec := &record{
		info:       info,
		proc:       proc,
		buf:        buf,
		subs:       make(map[string]chan []byte),
		readerDone: make(chan struct{}),
	}
	rec.lastActivity.Store(info.CreatedAt.UnixNano())
	return rec
}

func (r *record) touch() {
	r.lastActivity.Store(time.Now().UnixNano())
}

func (r *record) snapshot(idleAfter time.Duration) Session {
	r.mu.RLock()
	s := r.info
	r.mu.RUnlock()

	if s.PID != nil {
		pid := *s.PID
		s.PID = &pid
	}
	s.LastActivity = time.Unix(0, r.lastActivity.Load()).UTC()
	if s.Status == StatusRunning && idleAfter > 0 && time.Since(s.LastActivity) > idleAfter {
		s.Status = StatusIdle
	}
	return s
}

func (r *record) status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info.Status
}

// setStatus moves the session to status unless it already reached a terminal
// state. It reports whether the status changed.
func (r *record) setStatus(status Status, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.info.Status.Terminal() || r.info.Status == status {
		return false
	}
	r.info.Status = status
	r.info.StatusReason = reason
	return true
}

func (r *record) subscribe(subID string) <-chan []byte {
	ch := make(chan []byte, subscriberBuffer)

	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.subsClosed {
		close(ch)
		return ch
	}
	r.subs[subID] = ch
	return ch
}

func (r *record) unsubscribe(subID string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if ch, ok := r.subs[subID]; ok {
		close(ch)
		delete(r.subs, subID)
	}
}

// publish hands chunk to every subscriber without blocking the reader.
func (r *record) publish(chunk []byte) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- chunk:
		default:
			// Slow consumer; the chunk is still in the line buffer.
		}
	}
}

func (r *record) closeSubscribers() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.subsClosed {
		return
	}
	r.subsClosed = true
	for subID, ch := range r.subs {
		close(ch)
		delete(r.subs, subID)
	}
}
