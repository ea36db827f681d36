// Package usecase implements platform sync business logic: connection
// management, the durable job queue and the dispatcher workers that push
// variable snapshots to external platforms.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/sync/adapter"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// ConnectionRepository defines the interface for PlatformConnection persistence.
type ConnectionRepository interface {
	Create(ctx context.Context, connection *syncDomain.PlatformConnection) error
	GetByID(ctx context.Context, id uuid.UUID) (*syncDomain.PlatformConnection, error)
	ListByEnvironment(ctx context.Context, environmentID uuid.UUID) ([]*syncDomain.PlatformConnection, error)
	UpdateStatus(ctx context.Context, connection *syncDomain.PlatformConnection) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// JobRepository defines the interface for the durable sync job queue.
type JobRepository interface {
	Create(ctx context.Context, job *syncDomain.SyncJob) error
	GetPendingJobs(ctx context.Context, now time.Time, limit int) ([]*syncDomain.SyncJob, error)
	Update(ctx context.Context, job *syncDomain.SyncJob) error
	ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncJob, error)
}

// LogRepository appends durable sync outcome records.
type LogRepository interface {
	Create(ctx context.Context, log *syncDomain.SyncLog) error
	ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncLog, error)
}

// ProcessingMarker marks connections with an in-flight sync.
type ProcessingMarker interface {
	Acquire(ctx context.Context, connectionID uuid.UUID) (bool, error)
	Release(ctx context.Context, connectionID uuid.UUID) error
}

// VariableReader supplies the decrypted variable snapshot pushed to platforms.
type VariableReader interface {
	ListDecrypted(ctx context.Context, environmentID uuid.UUID) ([]*variableDomain.Variable, error)
}

// AdapterResolver resolves the adapter for a platform type.
type AdapterResolver interface {
	Resolve(platform syncDomain.PlatformType) (adapter.Adapter, error)
}

// Notifier delivers alert webhooks to project subscribers.
type Notifier interface {
	Notify(ctx context.Context, projectID uuid.UUID, event string, data map[string]any) error
}

// ConnectionInput carries the fields for creating a platform connection.
type ConnectionInput struct {
	ProjectID     uuid.UUID
	EnvironmentID uuid.UUID
	Platform      syncDomain.PlatformType
	// Credentials is the plaintext credentials map, sealed before storage.
	Credentials    map[string]string
	TargetResource string
}

// SyncUseCase defines the interface for platform sync business logic.
type SyncUseCase interface {
	// CreateConnection verifies the credentials against the platform, seals
	// them and stores the connection.
	CreateConnection(ctx context.Context, input ConnectionInput) (*syncDomain.PlatformConnection, error)
	// GetConnection retrieves a connection by id.
	GetConnection(ctx context.Context, id uuid.UUID) (*syncDomain.PlatformConnection, error)
	// ListConnections retrieves all connections of an environment.
	ListConnections(ctx context.Context, environmentID uuid.UUID) ([]*syncDomain.PlatformConnection, error)
	// DeleteConnection removes a connection.
	DeleteConnection(ctx context.Context, id uuid.UUID) error
	// TestConnection verifies the stored credentials still reach the target resource.
	TestConnection(ctx context.Context, id uuid.UUID) error
	// EnqueueForEnvironment creates one pending job per connection of the
	// environment. It backs the sync queue used by variable and rotation flows.
	EnqueueForEnvironment(ctx context.Context, environmentID uuid.UUID, trigger string) error
	// ProcessJobs claims and processes a batch of due jobs, returning how
	// many were handled.
	ProcessJobs(ctx context.Context) (int, error)
	// ListLogs retrieves the most recent sync outcomes for a connection.
	ListLogs(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncLog, error)
}
