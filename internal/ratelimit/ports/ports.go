// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"
	"log/slog"

	"trustforge/internal/audit"
	"trustforge/internal/ratelimit/models"
)

// StateStore persists limiter state per subject. Implementations do a plain
// load/save of one JSON-serialized value; there is deliberately no
// compare-and-swap, so two contexts sharing a store can race past the nominal
// limit. The limiter is an abuse deterrent, not a hard guarantee.
type StateStore interface {
	// Load returns the stored state for a key, or a zero state when none exists.
	Load(ctx context.Context, key string) (models.State, error)

	// Save overwrites the stored state for a key.
	Save(ctx context.Context, key string, state models.State) error
}

// AuditPublisher emits audit events for security-relevant gate decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an event to both the structured logger and the audit
// publisher when either is available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event string, attrs ...any) {
	args := append(attrs, "event", event, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, audit.Event{Action: event}); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
