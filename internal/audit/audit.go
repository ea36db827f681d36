// Package audit emits structured audit events for security-relevant actions:
// variable changes, rotation outcomes, sync deliveries. Events are not a
// durable store; durable records live in version history and attempt tables.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Severity classifies an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event describes one security-relevant action.
type Event struct {
	// Action names what happened (e.g., "variable_updated", "rotation_failed").
	Action string
	// ResourceID identifies the affected resource.
	ResourceID string
	// Actor identifies who or what performed the action.
	Actor string
	// Metadata carries action-specific details. Never include secret values.
	Metadata map[string]any
	// Severity classifies the event.
	Severity  Severity
	CreatedAt time.Time
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// SlogSink writes audit events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a new SlogSink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger.With(slog.String("component", "audit"))}
}

// Record writes the event at a log level matching its severity.
func (s *SlogSink) Record(ctx context.Context, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	attrs := []any{
		slog.String("action", event.Action),
		slog.String("resource_id", event.ResourceID),
		slog.String("actor", event.Actor),
		slog.Time("created_at", event.CreatedAt),
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	s.logger.Log(ctx, level, "audit event", attrs...)
}
