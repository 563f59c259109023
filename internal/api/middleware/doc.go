// Package middleware provides the HTTP middleware stack.
//
//   - CORS: gin-contrib/cors with configurable origins. OriginAllowed applies
//     the same policy to WebSocket handshakes.
//   - RateLimit: per-IP token buckets with idle-client cleanup.
//   - Gzip: response compression for large bodies.
//   - RequestLogger: one zap entry per request.
//
// Example:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig(origins...)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
