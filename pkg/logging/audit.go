package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant operation on tokens or the token cache.
// Token values must never be placed in any field.
type AuditEvent struct {
	// Action is what happened, e.g. "token_acquired", "token_stored", "cache_cleared".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// Authority is the authority URL the operation was performed against.
	Authority string
	// Resource is the resource the token was requested for.
	Resource string
	// User is the displayable or unique user id, truncated for logs.
	User string
	// CorrelationID is the request correlation id.
	CorrelationID string
	// Error is an optional error message.
	Error string
}

// Audit logs a security audit event at INFO level with an [AUDIT] prefix for easy filtering.
func Audit(event AuditEvent) {
	logger := Logger()
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		return
	}

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.Authority != "" {
		attrs = append(attrs, slog.String("authority", event.Authority))
	}
	if event.Resource != "" {
		attrs = append(attrs, slog.String("resource", event.Resource))
	}
	if event.User != "" {
		attrs = append(attrs, slog.String("user", TruncateID(event.User)))
	}
	if event.CorrelationID != "" {
		attrs = append(attrs, slog.String("correlation_id", event.CorrelationID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

// TruncateID shortens an identifier for logging, keeping the first 8 characters.
func TruncateID(id string) string {
	const keep = 8
	runes := []rune(id)
	if len(runes) <= keep {
		return id
	}
	return string(runes[:keep]) + "..."
}
