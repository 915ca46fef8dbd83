// Package logging provides the structured logging used across azauth.
//
// It is a thin layer over Go's slog package. Every entry carries a subsystem
// attribute so output from the token engine, the cache and the CLI can be
// filtered independently.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("TokenCache", "Loaded %d items from %s", n, path)
//	logging.Debug("Handler", "state %s -> %s", from, to)
//	logging.Warn("Transport", "correlation id mismatch")
//	logging.Error("Handler", err, "token acquisition failed")
//
// # Audit Logging
//
// Security sensitive operations are reported with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:        "token_acquired",
//	    Outcome:       "success",
//	    Authority:     authority,
//	    Resource:      resource,
//	    CorrelationID: correlationID,
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Token values are
// never logged; user identifiers are truncated with TruncateID.
package logging
