// Package audit records security events for the ingestion gate. Entries
// are a side effect only: handlers never branch on audit success, and a
// disabled logger costs one branch per event.
package audit

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Well-known gate events.
const (
	EventRequestTimeout      = "REQUEST_TIMEOUT"
	EventIPBlocked           = "IP_BLOCKED"
	EventAPIKeyNotConfigured = "API_KEY_NOT_CONFIGURED"
	EventInvalidAuthHeader   = "INVALID_AUTH_HEADER"
	EventInvalidAPIKey       = "INVALID_API_KEY"
	EventValidationError     = "VALIDATION_ERROR"
	EventInvalidServerName   = "INVALID_SERVER_NAME"
	EventUnauthorizedServer  = "UNAUTHORIZED_SERVER"
	EventInvalidQueueType    = "INVALID_QUEUE_TYPE"
	EventServerNameMismatch  = "SERVER_NAME_MISMATCH"
	EventQueueLimitExceeded  = "QUEUE_LIMIT_EXCEEDED"
)

// Logger writes security events through zap when enabled.
type Logger struct {
	enabled bool
	logger  *zap.Logger
}

// NewLogger creates an audit logger. When enabled is false every Event
// call is a no-op.
func NewLogger(enabled bool, logger *zap.Logger) *Logger {
	return &Logger{enabled: enabled, logger: logger}
}

// Event records one security event with request correlation fields.
// Extra fields may carry the request fingerprint or stage details, but
// never credential values.
func (l *Logger) Event(event string, r *http.Request, fields ...zap.Field) {
	if !l.enabled {
		return
	}

	base := []zap.Field{
		zap.String("eventID", uuid.New().String()),
		zap.String("event", event),
		zap.String("ip", r.RemoteAddr),
		zap.String("userAgent", r.UserAgent()),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	l.logger.Warn("security event", append(base, fields...)...)
}
