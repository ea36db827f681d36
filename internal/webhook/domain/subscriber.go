// Package domain defines webhook subscriber models.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/errors"
)

// Subscriber maps a project event type to a delivery URL. A project can have
// any number of subscribers per event.
type Subscriber struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	// EventType selects which events this subscriber receives
	// (rotation_failed, sync_failed, ...).
	EventType string
	URL       string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrSubscriberNotFound indicates no subscriber exists for the id.
var ErrSubscriberNotFound = errors.Wrap(errors.ErrNotFound, "webhook subscriber not found")

// Payload is the JSON body delivered to subscribers.
type Payload struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}
