// Package domain defines the core domain models for secret rotation:
// append-only attempt records and transient pending retries.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus is the outcome of one rotation attempt.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
)

// Attempt is an append-only record of one rotation attempt for a variable.
type Attempt struct {
	ID         uuid.UUID
	VariableID uuid.UUID
	// Number is the attempt counter within one rotation cycle (1-based).
	Number int
	Status AttemptStatus
	// Error holds the failure detail, empty on success.
	Error string
	// Actor identifies who triggered the rotation ("rotation" for scheduled runs).
	Actor     string
	CreatedAt time.Time
}

// PendingRetry schedules a re-attempt after a failed rotation. Retries live
// in a fast external store keyed per variable, last-writer-wins.
type PendingRetry struct {
	VariableID uuid.UUID `json:"variable_id"`
	// Attempt is the number the next attempt will carry.
	Attempt     int       `json:"attempt"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
