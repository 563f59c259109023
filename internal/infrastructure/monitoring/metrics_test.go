package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.SessionCreated()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsCreated))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsCreated))
}

func TestRecorderMethods(t *testing.T) {
	m := NewMetrics()

	m.SessionCreated()
	m.SessionRejected("max_sessions")
	m.SessionRejected("max_sessions")
	m.SessionEnded(terminal.StatusStopped)
	m.SetSessionsActive(3)
	m.PtyBytesIn(10)
	m.PtyBytesOut(25)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsRejected.WithLabelValues("max_sessions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues("stopped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.PtyBytes.WithLabelValues("in")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.PtyBytes.WithLabelValues("out")))
	assert.Equal(t, int64(3), m.Snapshot().ActiveSessions)
}

func TestWSConnections(t *testing.T) {
	m := NewMetrics()

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("in", "text")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("in", "text")))
	assert.Equal(t, int64(1), m.Snapshot().ActiveConnections)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/terminals/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	for _, id := range []string{"term_a", "term_b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/terminals/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/terminals/:id", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordExec("capture", "ok", 120*time.Millisecond)
	NewTimer(m, "terminal", "exec").Stop("success")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "termhost_exec_duration_seconds")
	assert.Contains(t, string(body), "termhost_service_calls_total")
	assert.Contains(t, string(body), "termhost_uptime_seconds")
}

func TestNilTimerStop(t *testing.T) {
	var timer *Timer
	assert.NotPanics(t, func() { timer.Stop("success") })
}
