// Package middleware provides the HTTP middleware of the API.
//
// Middleware stack includes:
//   - CORS: public read access from any origin
//   - RateLimit: per-IP token bucket with idle client eviction
//   - GlobalRateLimit: one shared bucket for routes that sweep upstream
//   - BodyLimit: request body cap
//   - RequestID: X-Request-ID propagation
//   - RequestLogger: structured zap access log
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
