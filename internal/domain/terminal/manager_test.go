package terminal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testShell = "/bin/sh"

func newTestManager(t *testing.T, mutate func(*Options)) *Manager {
	t.Helper()
	if _, err := os.Stat(testShell); err != nil {
		t.Skipf("%s not available: %v", testShell, err)
	}

	opts := DefaultOptions()
	opts.WorkspaceRoot = t.TempDir()
	opts.DefaultShell = testShell
	opts.MaxSessions = 4
	opts.PollInterval = 10 * time.Millisecond
	if mutate != nil {
		mutate(&opts)
	}

	m := NewManager(opts, zaptest.NewLogger(t))
	t.Cleanup(m.Shutdown)
	return m
}

func bufferContains(m *Manager, sessionID, want string) func() bool {
	return func() bool {
		lines, err := m.Buffer(sessionID, AllLines)
		if err != nil {
			return false
		}
		for _, l := range lines {
			if l == want {
				return true
			}
		}
		return false
	}
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "t1"})
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "t1", sess.Name)
	assert.Equal(t, testShell, sess.Shell)
	assert.Equal(t, m.Options().WorkspaceRoot, sess.WorkingDir)
	assert.Equal(t, 120, sess.Cols)
	assert.Equal(t, 40, sess.Rows)
	assert.Equal(t, StatusRunning, sess.Status)
	require.NotNil(t, sess.PID)
	assert.Greater(t, *sess.PID, 0)

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	byName, err := m.GetByName("t1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, byName.ID)

	resolved, err := m.Resolve("t1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resolved)
}

func TestCreateValidation(t *testing.T) {
	m := newTestManager(t, func(o *Options) {
		o.AllowedShells = []string{"/bin/*sh"}
	})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty name", Config{Name: "  "}},
		{"missing directory", Config{Name: "a", WorkingDir: "/nonexistent/dir/xyz"}},
		{"shell not allowed", Config{Name: "b", Shell: "/usr/bin/python3"}},
		{"bad size", Config{Name: "c", Cols: -1, Rows: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	assert.Empty(t, m.List())
}

func TestCreateWorkingDirIsFile(t *testing.T) {
	m := newTestManager(t, nil)

	f, err := os.CreateTemp(t.TempDir(), "file")
	require.NoError(t, err)
	f.Close()

	_, err = m.Create(context.Background(), Config{Name: "f", WorkingDir: f.Name()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCreateRelativeWorkingDir(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, os.Mkdir(m.Options().WorkspaceRoot+"/sub", 0o755))

	sess, err := m.Create(context.Background(), Config{Name: "rel", WorkingDir: "sub"})
	require.NoError(t, err)
	assert.Equal(t, m.Options().WorkspaceRoot+"/sub", sess.WorkingDir)
}

func TestMaxSessions(t *testing.T) {
	m := newTestManager(t, func(o *Options) { o.MaxSessions = 2 })
	ctx := context.Background()

	first, err := m.Create(ctx, Config{Name: "s1"})
	require.NoError(t, err)
	_, err = m.Create(ctx, Config{Name: "s2"})
	require.NoError(t, err)

	_, err = m.Create(ctx, Config{Name: "s3"})
	assert.ErrorIs(t, err, ErrMaxSessions)
	assert.True(t, IsConflict(err))

	require.NoError(t, m.Kill(first.ID))

	_, err = m.Create(ctx, Config{Name: "s3"})
	assert.NoError(t, err, "killing a session should free capacity")
}

func TestConcurrentCreatesRespectCapacity(t *testing.T) {
	const capacity = 3
	m := newTestManager(t, func(o *Options) { o.MaxSessions = capacity })

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < capacity*3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Create(context.Background(), Config{Name: fmt.Sprintf("c%d", i)})
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, ErrMaxSessions):
				rejected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(capacity), succeeded.Load())
	assert.Equal(t, int32(capacity*2), rejected.Load())
	assert.Len(t, m.List(), capacity)
}

func TestDuplicateName(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	first, err := m.Create(ctx, Config{Name: "dup"})
	require.NoError(t, err)

	_, err = m.Create(ctx, Config{Name: "dup"})
	assert.ErrorIs(t, err, ErrSessionExists)

	named := 0
	for _, s := range m.List() {
		if s.Name == "dup" {
			named++
		}
	}
	assert.Equal(t, 1, named)

	require.NoError(t, m.Kill(first.ID))
	again, err := m.Create(ctx, Config{Name: "dup"})
	require.NoError(t, err, "name should be reusable after kill")
	assert.NotEqual(t, first.ID, again.ID)
}

func TestSpawnFailureReleasesReservation(t *testing.T) {
	m := newTestManager(t, func(o *Options) { o.MaxSessions = 1 })

	_, err := m.Create(context.Background(), Config{Name: "x", Shell: "/nonexistent/shell"})
	assert.ErrorIs(t, err, ErrPty)

	_, err = m.Resolve("x")
	assert.ErrorIs(t, err, ErrSessionNameNotFound)

	_, err = m.Create(context.Background(), Config{Name: "x"})
	assert.NoError(t, err)
}

func TestKillUnknown(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "keep"})
	require.NoError(t, err)

	err = m.Kill("term_unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, IsNotFound(err))

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, sess.ID, list[0].ID)
}

func TestKillRemovesNameAndSession(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "gone"})
	require.NoError(t, err)
	require.NoError(t, m.Kill(sess.ID))

	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.GetByName("gone")
	assert.ErrorIs(t, err, ErrSessionNameNotFound)
	assert.ErrorIs(t, m.Kill(sess.ID), ErrSessionNotFound)
	assert.Equal(t, 0, m.Count())
}

func TestExecEchoHi(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "t1", Shell: "/bin/sh"})
	require.NoError(t, err)

	sessionID, err := m.Resolve("t1")
	require.NoError(t, err)
	require.NoError(t, m.Exec(sessionID, "echo hi"))

	require.Eventually(t, func() bool {
		lines, err := m.Buffer(sess.ID, 5)
		if err != nil {
			return false
		}
		for _, l := range lines {
			if l == "hi" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWriteEchoRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "echo"})
	require.NoError(t, err)

	require.NoError(t, m.Write(sess.ID, []byte("printf 'round%s\\n' trip\n")))
	require.Eventually(t, bufferContains(m, sess.ID, "roundtrip"), 5*time.Second, 20*time.Millisecond)
}

func TestWriteUnknownSession(t *testing.T) {
	m := newTestManager(t, nil)

	assert.ErrorIs(t, m.Write("nope", []byte("x")), ErrSessionNotFound)
	assert.ErrorIs(t, m.Exec("nope", "ls"), ErrSessionNotFound)
	assert.ErrorIs(t, m.Resize("nope", 80, 24), ErrSessionNotFound)
	assert.ErrorIs(t, m.FlushBuffer("nope"), ErrSessionNotFound)
	_, err := m.Buffer("nope", AllLines)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestByNameOperations(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "agent"})
	require.NoError(t, err)

	require.NoError(t, m.ExecByName("agent", "echo by-name"))
	require.Eventually(t, bufferContains(m, sess.ID, "by-name"), 5*time.Second, 20*time.Millisecond)

	require.NoError(t, m.WriteByName("agent", []byte("echo raw\n")))
	require.Eventually(t, func() bool {
		lines, err := m.BufferByName("agent", AllLines)
		return err == nil && contains(lines, "raw")
	}, 5*time.Second, 20*time.Millisecond)

	assert.ErrorIs(t, m.ExecByName("missing", "ls"), ErrSessionNameNotFound)
	assert.ErrorIs(t, m.WriteByName("missing", nil), ErrSessionNameNotFound)
	_, err = m.BufferByName("missing", 1)
	assert.ErrorIs(t, err, ErrSessionNameNotFound)
}

func TestBufferLimit(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "limit"})
	require.NoError(t, err)
	require.NoError(t, m.Exec(sess.ID, "echo first; echo second"))
	require.Eventually(t, bufferContains(m, sess.ID, "second"), 5*time.Second, 20*time.Millisecond)

	none, err := m.Buffer(sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	one, err := m.Buffer(sess.ID, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	all, err := m.Buffer(sess.ID, AllLines)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)
}

func TestFlushBufferIdempotent(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "flush"})
	require.NoError(t, err)
	require.NoError(t, m.Exec(sess.ID, "echo data"))
	require.Eventually(t, bufferContains(m, sess.ID, "data"), 5*time.Second, 20*time.Millisecond)

	require.NoError(t, m.FlushBuffer(sess.ID))
	require.NoError(t, m.FlushBuffer(sess.ID))

	lines, err := m.Buffer(sess.ID, AllLines)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestResize(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "size", Cols: 80, Rows: 24})
	require.NoError(t, err)

	require.NoError(t, m.Resize(sess.ID, 100, 30))
	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Cols)
	assert.Equal(t, 30, got.Rows)

	require.NoError(t, m.Exec(sess.ID, "stty size"))
	require.Eventually(t, bufferContains(m, sess.ID, "30 100"), 5*time.Second, 20*time.Millisecond)

	assert.ErrorIs(t, m.Resize(sess.ID, 0, 30), ErrInvalidConfig)
}

func TestSessionStopsWhenShellExits(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "exit"})
	require.NoError(t, err)
	require.NoError(t, m.Exec(sess.ID, "exit 0"))

	require.Eventually(t, func() bool {
		got, err := m.Get(sess.ID)
		return err == nil && got.Status == StatusStopped
	}, 5*time.Second, 20*time.Millisecond)

	// Stopped sessions stay addressable until killed.
	_, err = m.Buffer(sess.ID, AllLines)
	assert.NoError(t, err)
	assert.NoError(t, m.Kill(sess.ID))
}

func TestIdleStatus(t *testing.T) {
	m := newTestManager(t, func(o *Options) { o.IdleAfter = 100 * time.Millisecond })

	sess, err := m.Create(context.Background(), Config{Name: "quiet"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(sess.ID)
		return err == nil && got.Status == StatusIdle
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, m.Exec(sess.ID, "true"))
	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status, "input should make the session active again")
}

func TestSubscribeReceivesOutputAndClosesOnKill(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "sub"})
	require.NoError(t, err)

	subID, ch, err := m.Subscribe(sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, subID)

	require.NoError(t, m.Exec(sess.ID, "echo streamed"))

	var seen string
	deadline := time.After(5 * time.Second)
	for !strings.Contains(seen, "streamed\r\n") {
		select {
		case chunk, ok := <-ch:
			require.True(t, ok)
			seen += string(chunk)
		case <-deadline:
			t.Fatalf("no output on subscription, got %q", seen)
		}
	}

	require.NoError(t, m.Kill(sess.ID))
	for range ch {
	}

	_, _, err = m.Subscribe(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	m.Unsubscribe(sess.ID, subID) // no-op for unknown sessions
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.Create(context.Background(), Config{Name: "unsub"})
	require.NoError(t, err)

	subID, ch, err := m.Subscribe(sess.ID)
	require.NoError(t, err)
	m.Unsubscribe(sess.ID, subID)
	m.Unsubscribe(sess.ID, subID)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestListOrderedByCreation(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := m.Create(ctx, Config{Name: name})
		require.NoError(t, err)
	}

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)
	assert.Equal(t, "c", list[2].Name)
}

func TestRecorderReceivesLifecycle(t *testing.T) {
	rec := &countingRecorder{}
	m := newTestManager(t, func(o *Options) { o.MaxSessions = 1 })
	m.WithMetrics(rec)

	sess, err := m.Create(context.Background(), Config{Name: "m"})
	require.NoError(t, err)
	_, err = m.Create(context.Background(), Config{Name: "m2"})
	require.Error(t, err)
	require.NoError(t, m.Exec(sess.ID, "echo metrics"))
	require.Eventually(t, bufferContains(m, sess.ID, "metrics"), 5*time.Second, 20*time.Millisecond)
	require.NoError(t, m.Kill(sess.ID))

	assert.Equal(t, int32(1), rec.created.Load())
	assert.Equal(t, int32(1), rec.rejected.Load())
	assert.Equal(t, int32(1), rec.ended.Load())
	assert.Greater(t, rec.bytesIn.Load(), int64(0))
	assert.Greater(t, rec.bytesOut.Load(), int64(0))
	assert.Equal(t, int32(0), rec.active.Load())
}

type countingRecorder struct {
	created, rejected, ended, active atomic.Int32
	bytesIn, bytesOut                atomic.Int64
}

func (c *countingRecorder) SessionCreated()         { c.created.Add(1) }
func (c *countingRecorder) SessionRejected(string)  { c.rejected.Add(1) }
func (c *countingRecorder) SessionEnded(Status)     { c.ended.Add(1) }
func (c *countingRecorder) SetSessionsActive(n int) { c.active.Store(int32(n)) }
func (c *countingRecorder) PtyBytesIn(n int)        { c.bytesIn.Add(int64(n)) }
func (c *countingRecorder) PtyBytesOut(n int)       { c.bytesOut.Add(int64(n)) }

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}
