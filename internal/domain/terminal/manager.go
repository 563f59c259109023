package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal/buffer"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal/process"
	"github.com/GriffinCanCode/termhost/internal/shared/id"
)

const (
	readChunkSize = 4096
	// killWait bounds how long Kill waits for the output reader to finish.
	killWait = 2 * time.Second
)

// Manager is the registry of live terminal sessions.
//
// The session map and the name index change together under mu. Lookups take
// the read lock only long enough to find the record; process I/O happens
// outside it.
type Manager struct {
	opts    Options
	logger  *zap.Logger
	metrics Recorder

	mu       sync.RWMutex
	sessions map[string]*record
	names    map[string]string
	pending  int // creates that reserved capacity but have not spawned yet
}

// NewManager creates a session registry. A nil logger disables logging.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:     opts.withDefaults(),
		logger:   logger.Named("terminal"),
		metrics:  nopRecorder{},
		sessions: make(map[string]*record),
		names:    make(map[string]string),
	}
}

// WithMetrics attaches a metrics recorder.
func (m *Manager) WithMetrics(r Recorder) *Manager {
	if r != nil {
		m.metrics = r
	}
	return m
}

// Options returns the effective options.
func (m *Manager) Options() Options {
	return m.opts
}

// Create spawns a new session.
func (m *Manager) Create(ctx context.Context, cfg Config) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	shell, dir, cols, rows, err := m.resolve(cfg)
	if err != nil {
		m.metrics.SessionRejected("invalid_config")
		return Session{}, err
	}

	sessionID, err := m.reserve(name)
	if err != nil {
		return Session{}, err
	}

	proc, err := process.Spawn(process.Options{
		Shell: shell,
		Dir:   dir,
		Cols:  uint16(cols),
		Rows:  uint16(rows),
		Env:   cfg.Env,
	})
	if err != nil {
		m.mu.Lock()
		m.pending--
		delete(m.names, name)
		m.mu.Unlock()

		m.metrics.SessionRejected("pty")
		m.logger.Warn("Failed to spawn session", zap.String("name", name), zap.String("shell", shell), zap.Error(err))
		return Session{}, fmt.Errorf("%w: %v", ErrPty, err)
	}

	info := Session{
		ID:         sessionID,
		Name:       name,
		WorkingDir: dir,
		Shell:      shell,
		Cols:       cols,
		Rows:       rows,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusStarting,
	}
	if pid := proc.Pid(); pid > 0 {
		info.PID = &pid
	}
	rec := newRecord(info, proc, buffer.New(m.opts.BufferLines))

	m.mu.Lock()
	m.pending--
	m.sessions[sessionID] = rec
	active := len(m.sessions)
	m.mu.Unlock()

	rec.setStatus(StatusRunning, "")
	go m.readLoop(rec)

	m.metrics.SessionCreated()
	m.metrics.SetSessionsActive(active)
	m.logger.Info("Session created",
		zap.String("id", sessionID),
		zap.String("name", name),
		zap.String("shell", shell),
		zap.String("cwd", dir),
		zap.Int("pid", proc.Pid()),
	)

	return rec.snapshot(m.opts.IdleAfter), nil
}

// reserve claims capacity and the name before the process is spawned, so two
// concurrent creates can never both pass the checks.
func (m *Manager) reserve(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions)+m.pending >= m.opts.MaxSessions {
		m.metrics.SessionRejected("max_sessions")
		return "", fmt.Errorf("%w (%d)", ErrMaxSessions, m.opts.MaxSessions)
	}
	if _, taken := m.names[name]; taken {
		m.metrics.SessionRejected("name_exists")
		return "", fmt.Errorf("%w: %s", ErrSessionExists, name)
	}

	sessionID := id.NewTerminalID().String()
	m.names[name] = sessionID
	m.pending++
	return sessionID, nil
}

func (m *Manager) resolve(cfg Config) (shell, dir string, cols, rows int, err error) {
	shell = cfg.Shell
	if shell == "" {
		shell = m.opts.DefaultShell
	}
	if !m.shellAllowed(shell) {
		return "", "", 0, 0, fmt.Errorf("%w: shell not allowed: %s", ErrInvalidConfig, shell)
	}

	dir = cfg.WorkingDir
	switch {
	case dir == "":
		dir = m.opts.WorkspaceRoot
	case !filepath.IsAbs(dir):
		dir = filepath.Join(m.opts.WorkspaceRoot, dir)
	}
	info, statErr := os.Stat(dir)
	if statErr != nil {
		return "", "", 0, 0, fmt.Errorf("%w: working directory does not exist: %s", ErrInvalidConfig, dir)
	}
	if !info.IsDir() {
		return "", "", 0, 0, fmt.Errorf("%w: not a directory: %s", ErrInvalidConfig, dir)
	}

	cols, rows = cfg.Cols, cfg.Rows
	if cols == 0 {
		cols = m.opts.DefaultCols
	}
	if rows == 0 {
		rows = m.opts.DefaultRows
	}
	if err := validSize(cols, rows); err != nil {
		return "", "", 0, 0, err
	}
	return shell, dir, cols, rows, nil
}

func (m *Manager) shellAllowed(shell string) bool {
	if len(m.opts.AllowedShells) == 0 {
		return true
	}
	for _, pattern := range m.opts.AllowedShells {
		if ok, err := doublestar.Match(pattern, shell); err == nil && ok {
			return true
		}
	}
	return false
}

func validSize(cols, rows int) error {
	if cols < 1 || cols > 0xffff || rows < 1 || rows > 0xffff {
		return fmt.Errorf("%w: invalid size %dx%d", ErrInvalidConfig, cols, rows)
	}
	return nil
}

// readLoop drains the pty into the line buffer and subscribers until the
// output ends, then marks the session stopped (or errored).
func (m *Manager) readLoop(rec *record) {
	defer close(rec.readerDone)

	buf := make([]byte, readChunkSize)
	final, reason := StatusStopped, ""
	for {
		n, err := rec.proc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			rec.buf.Push(chunk)
			rec.touch()
			rec.publish(chunk)
			m.metrics.PtyBytesOut(n)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				final, reason = StatusError, err.Error()
			}
			break
		}
	}

	rec.closeSubscribers()
	if rec.setStatus(final, reason) {
		m.metrics.SessionEnded(final)
	}
	m.logger.Debug("Session output ended",
		zap.String("id", rec.info.ID),
		zap.String("status", string(final)),
		zap.String("reason", reason),
	)
}

func (m *Manager) lookup(sessionID string) (*record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rec, nil
}

// Resolve maps a session name to its ID.
func (m *Manager) Resolve(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessionID, ok := m.names[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNameNotFound, name)
	}
	if _, live := m.sessions[sessionID]; !live {
		// Reserved by a create that has not finished spawning.
		return "", fmt.Errorf("%w: %s", ErrSessionNameNotFound, name)
	}
	return sessionID, nil
}

// Get returns a snapshot of a session.
func (m *Manager) Get(sessionID string) (Session, error) {
	rec, err := m.lookup(sessionID)
	if err != nil {
		return Session{}, err
	}
	return rec.snapshot(m.opts.IdleAfter), nil
}

// GetByName returns a snapshot of the session holding name.
func (m *Manager) GetByName(name string) (Session, error) {
	sessionID, err := m.Resolve(name)
	if err != nil {
		return Session{}, err
	}
	return m.Get(sessionID)
}

// List returns every session, oldest first.
func (m *Manager) List() []Session {
	m.mu.RLock()
	records := make([]*record, 0, len(m.sessions))
	for _, rec := range m.sessions {
		records = append(records, rec)
	}
	m.mu.RUnlock()

	out := make([]Session, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.snapshot(m.opts.IdleAfter))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of sessions in the registry.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Write passes data to the session's input unchanged.
func (m *Manager) Write(sessionID string, data []byte) error {
	rec, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	if _, err := rec.proc.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, sessionID, err)
	}
	rec.touch()
	m.metrics.PtyBytesIn(len(data))
	return nil
}

// Exec writes command followed by a newline.
func (m *Manager) Exec(sessionID, command string) error {
	return m.Write(sessionID, []byte(command+"\n"))
}

// Resize records the new size and applies it to the live pty.
func (m *Manager) Resize(sessionID string, cols, rows int) error {
	if err := validSize(cols, rows); err != nil {
		return err
	}
	rec, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	rec.info.Cols = cols
	rec.info.Rows = rows
	ended := rec.info.Status.Terminal()
	rec.mu.Unlock()

	if ended {
		return nil
	}
	if err := rec.proc.Resize(uint16(cols), uint16(rows)); err != nil {
		return fmt.Errorf("%w: resize %s: %v", ErrIO, sessionID, err)
	}
	return nil
}

// Kill removes the session and terminates its process.
func (m *Manager) Kill(sessionID string) error {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(m.sessions, sessionID)
	if m.names[rec.info.Name] == sessionID {
		delete(m.names, rec.info.Name)
	}
	active := len(m.sessions)
	m.mu.Unlock()

	m.release(rec)
	m.metrics.SetSessionsActive(active)
	m.logger.Info("Session killed", zap.String("id", sessionID), zap.String("name", rec.info.Name))
	return nil
}

func (m *Manager) release(rec *record) {
	if err := rec.proc.Close(); err != nil {
		m.logger.Debug("Closing pty", zap.String("id", rec.info.ID), zap.Error(err))
	}

	select {
	case <-rec.readerDone:
	case <-time.After(killWait):
		m.logger.Warn("Output reader did not exit", zap.String("id", rec.info.ID))
	}

	rec.closeSubscribers()
	if rec.setStatus(StatusStopped, "") {
		m.metrics.SessionEnded(StatusStopped)
	}
}

// Buffer returns the last limit captured lines, or all of them if limit is
// negative. A limit of 0 returns none.
func (m *Manager) Buffer(sessionID string, limit int) ([]string, error) {
	rec, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return rec.buf.All(), nil
	}
	return rec.buf.Recent(limit), nil
}

// FlushBuffer empties the session's captured output.
func (m *Manager) FlushBuffer(sessionID string) error {
	rec, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	rec.buf.Clear()
	return nil
}

// Subscribe registers for raw output chunks. The channel is closed when the
// process output ends, the session is killed, or Unsubscribe is called.
func (m *Manager) Subscribe(sessionID string) (string, <-chan []byte, error) {
	rec, err := m.lookup(sessionID)
	if err != nil {
		return "", nil, err
	}
	subID := id.NewSubscriberID().String()
	return subID, rec.subscribe(subID), nil
}

// Unsubscribe removes a subscription. Unknown sessions or IDs are ignored.
func (m *Manager) Unsubscribe(sessionID, subID string) {
	rec, err := m.lookup(sessionID)
	if err != nil {
		return
	}
	rec.unsubscribe(subID)
}

// Shutdown kills every session.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for sessionID := range m.sessions {
		ids = append(ids, sessionID)
	}
	m.mu.RUnlock()

	for _, sessionID := range ids {
		if err := m.Kill(sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn("Failed to kill session on shutdown", zap.String("id", sessionID), zap.Error(err))
		}
	}
}

// ExecByName is Exec addressed by session name.
func (m *Manager) ExecByName(name, command string) error {
	sessionID, err := m.Resolve(name)
	if err != nil {
		return err
	}
	return m.Exec(sessionID, command)
}

// WriteByName is Write addressed by session name.
func (m *Manager) WriteByName(name string, data []byte) error {
	sessionID, err := m.Resolve(name)
	if err != nil {
		return err
	}
	return m.Write(sessionID, data)
}

// BufferByName is Buffer addressed by session name.
func (m *Manager) BufferByName(name string, limit int) ([]string, error) {
	sessionID, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	return m.Buffer(sessionID, limit)
}
