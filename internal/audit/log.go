package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"langhub.io/internal/auth"
	"langhub.io/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Audit event names.
const (
	EventRoleChanged       = "membership.role_changed"
	EventMembershipBlocked = "membership.blocked"
	EventServiceKeyIssued  = "service_key.issued"
	EventWorkspaceCreated  = "workspace.created"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with the request id and the
// acting requester's identity.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := obs.Logger().WithFields(logrus.Fields{
		"type":  "audit",
		"event": event,
	})
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	if r, ok := auth.RequesterFromContext(ctx); ok {
		entry = entry.WithFields(r.LoggingAttributes())
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	entry.WithField("fields", copyFields).Info("audit")
	return nil
}
