package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking. A nil metrics value
// disables tracking.
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackExec times an exec wait or capture call. The returned function takes
// the call's error.
func (hm *HandlerMetrics) TrackExec(mode string) func(error) {
	start := time.Now()
	return func(err error) {
		if hm == nil || hm.metrics == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if StatusFor(err) == http.StatusGatewayTimeout {
				outcome = "timeout"
			}
		}
		hm.metrics.RecordExec(mode, outcome, time.Since(start))
	}
}

// TrackServiceOperation times a service registry call.
func (hm *HandlerMetrics) TrackServiceOperation(operation string) func() {
	start := time.Now()
	return func() {
		if hm == nil || hm.metrics == nil {
			return
		}
		hm.metrics.RecordServiceCall("service_registry", operation, "success", time.Since(start))
	}
}
