// Package audit writes structured security-relevant events: logins,
// token rotations, rejected refresh attempts, logouts. Entries ride on
// the global logger with type=audit so they can be filtered downstream.
package audit

import (
	"context"
	"errors"
	"strings"

	"mediavault.org/internal/auth"
	"mediavault.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Event names recorded by the auth flow.
const (
	EventLogin           = "auth.login"
	EventLoginFailed     = "auth.login_failed"
	EventTokenRotated    = "auth.token_rotated"
	EventRefreshRejected = "auth.refresh_rejected"
	EventLogout          = "auth.logout"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	logger := obs.Logger()
	entry := logger.Info().
		Str("type", "audit").
		Str("event", event)
	if rid := requestIDFromContext(ctx); rid != "" {
		entry = entry.Str("request_id", rid)
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		entry = entry.Str("user_id", principal.UserID).Str("username", principal.Username)
	}
	for k, v := range fields {
		entry = entry.Interface(k, v)
	}
	entry.Msg("audit event")
	return nil
}
