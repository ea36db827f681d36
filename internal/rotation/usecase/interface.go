// Package usecase implements rotation business logic: policy management,
// the rotation executor and the bounded-retry failure handler.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// VariableRepository is the slice of variable persistence rotation needs.
type VariableRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*variableDomain.Variable, error)
	GetByEnvironmentAndKey(ctx context.Context, environmentID uuid.UUID, key string) (*variableDomain.Variable, error)
	Update(ctx context.Context, v *variableDomain.Variable) error
	UpdateRotationPolicy(ctx context.Context, v *variableDomain.Variable) error
	ListDueForRotation(ctx context.Context, now time.Time, limit int) ([]*variableDomain.Variable, error)
}

// VersionRepository appends version rows for rotated values.
type VersionRepository interface {
	Create(ctx context.Context, vv *variableDomain.VariableVersion) error
}

// AttemptRepository persists append-only rotation attempt records.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *rotationDomain.Attempt) error
	ListByVariable(ctx context.Context, variableID uuid.UUID, limit int) ([]*rotationDomain.Attempt, error)
}

// RetryStore holds transient pending retries between failed attempts.
type RetryStore interface {
	Schedule(ctx context.Context, retry rotationDomain.PendingRetry) error
	Remove(ctx context.Context, variableID uuid.UUID) error
	ListDue(ctx context.Context, now time.Time) ([]rotationDomain.PendingRetry, error)
}

// SyncQueue enqueues platform sync jobs after successful rotations.
type SyncQueue interface {
	EnqueueForEnvironment(ctx context.Context, environmentID uuid.UUID, trigger string) error
}

// Notifier delivers alert webhooks to project subscribers.
type Notifier interface {
	Notify(ctx context.Context, projectID uuid.UUID, event string, data map[string]any) error
}

// RotationUseCase defines the interface for rotation business logic.
type RotationUseCase interface {
	// EnableRotation turns on scheduled rotation for a secret variable.
	// The first rotation is due one interval from now.
	EnableRotation(ctx context.Context, environmentID uuid.UUID, key string, intervalDays int, provider string) error
	// DisableRotation clears the rotation policy.
	DisableRotation(ctx context.Context, environmentID uuid.UUID, key string) error
	// UpdateInterval changes the rotation interval. The next due time is
	// recomputed from the variable's last update, not from now.
	UpdateInterval(ctx context.Context, environmentID uuid.UUID, key string, intervalDays int) error
	// Rotate performs an on-demand rotation of one variable.
	Rotate(ctx context.Context, environmentID uuid.UUID, key, actor string) error
	// RotateDue rotates every variable whose next-due time has passed and
	// returns how many succeeded. One variable's failure never aborts the rest.
	RotateDue(ctx context.Context) (int, error)
	// ProcessPendingRetries re-runs rotations whose retry delay has elapsed
	// and returns how many succeeded.
	ProcessPendingRetries(ctx context.Context) (int, error)
	// ListAttempts returns the attempt history of a variable, newest first.
	ListAttempts(ctx context.Context, environmentID uuid.UUID, key string, limit int) ([]*rotationDomain.Attempt, error)
}
