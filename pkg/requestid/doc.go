// Package requestid correlates log records of one HTTP request.
//
// Middleware assigns the id (reusing a valid X-Request-ID header) and
// LoggerExtractor feeds it into pkg/logger so every record logged with the
// request context carries request_id.
package requestid
