// Package server assembles the termhost HTTP server from configuration.
//
// It wires the session registry, the terminal tool provider, middleware,
// the REST handlers, the WebSocket relay and the Prometheus endpoint onto one
// gin router. Shutdown kills every session before returning.
package server
