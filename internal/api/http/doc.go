// Package http provides the REST handlers for terminal sessions and the
// service registry.
//
// Endpoints:
//   - Health: / and /health
//   - Terminals: /api/terminals, /api/terminals/:id and its exec, write,
//     resize and buffer subroutes
//   - Names: /api/names/:name with exec, exec/wait, write and buffer
//   - Services: /services, /services/discover, /services/execute
//
// Errors are returned as {"error": "..."}. Unknown sessions map to 404,
// name collisions and capacity to 409, bad input to 400 and timeouts to 504.
//
// Example:
//
//	handlers := http.NewHandlers(manager, registry, metrics, logger)
//	handlers.Register(router)
package http
