/*
Package monitoring provides Prometheus metrics for the service.

# Overview

Metrics owns a private registry covering HTTP requests, terminal sessions,
pseudo-terminal throughput, exec calls, tool calls and WebSocket relays. It
implements terminal.Recorder so the session registry reports into it
directly.

# Usage

	metrics := monitoring.NewMetrics()
	mgr := terminal.NewManager(opts, logger).WithMetrics(metrics)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "terminal", "exec_wait")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
