package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a sync job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusProcessed JobStatus = "processed"
	JobStatusFailed    JobStatus = "failed"
)

// SyncJob is one unit of work for the dispatcher: push the current variable
// snapshot of one environment to one platform connection. Jobs are durable
// and survive restarts; a failed push is re-enqueued with ScheduledAt pushed
// into the future until the retry budget is spent.
type SyncJob struct {
	ID            uuid.UUID
	ConnectionID  uuid.UUID
	EnvironmentID uuid.UUID
	// Trigger records what caused the job (variable change, manual sync,
	// rotation).
	Trigger     string
	Status      JobStatus
	Retries     int
	LastError   *string
	ScheduledAt time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
