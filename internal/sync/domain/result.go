package domain

import (
	"time"

	"github.com/google/uuid"
)

// AllVariables is the synthetic key used when a push fails as a whole
// rather than for individual variables.
const AllVariables = "all"

// EnvVar is one plaintext key/value pair pushed to a platform. Secret values
// are decrypted just before the push and zeroed right after.
type EnvVar struct {
	Key   string
	Value string
}

// SyncError describes the failure of a single variable within a push.
type SyncError struct {
	VariableKey string `json:"variableKey"`
	Message     string `json:"message"`
}

// SyncResult is the outcome of one push. A partially failed push still
// reports the count that made it; a whole-batch failure carries a single
// error keyed AllVariables.
type SyncResult struct {
	Success     bool        `json:"success"`
	SyncedCount int         `json:"syncedCount"`
	Errors      []SyncError `json:"errors,omitempty"`
}

// ErrorFor returns a result describing a whole-batch failure.
func ErrorFor(err error) *SyncResult {
	return &SyncResult{
		Success: false,
		Errors:  []SyncError{{VariableKey: AllVariables, Message: err.Error()}},
	}
}

// LogStatus is the recorded outcome of a sync attempt.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailure LogStatus = "failure"
)

// SyncLog is the durable record of one push attempt against a connection.
type SyncLog struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	JobID        uuid.UUID
	Status       LogStatus
	SyncedCount  int
	Error        *string
	CreatedAt    time.Time
}
