// Package usecase defines the interfaces and implementations for variable
// management use cases. Use cases orchestrate repositories, the envelope
// service and the sync queue to implement versioned, encrypted configuration.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// VariableRepository defines the interface for Variable persistence operations.
type VariableRepository interface {
	Create(ctx context.Context, v *variableDomain.Variable) error
	Update(ctx context.Context, v *variableDomain.Variable) error
	UpdateRotationPolicy(ctx context.Context, v *variableDomain.Variable) error
	GetByID(ctx context.Context, id uuid.UUID) (*variableDomain.Variable, error)
	GetByEnvironmentAndKey(ctx context.Context, environmentID uuid.UUID, key string) (*variableDomain.Variable, error)
	ListByEnvironment(ctx context.Context, environmentID uuid.UUID) ([]*variableDomain.Variable, error)
	ListDueForRotation(ctx context.Context, now time.Time, limit int) ([]*variableDomain.Variable, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// VersionRepository defines the interface for version history persistence.
type VersionRepository interface {
	Create(ctx context.Context, vv *variableDomain.VariableVersion) error
	GetByVariableAndVersion(ctx context.Context, variableID uuid.UUID, version uint) (*variableDomain.VariableVersion, error)
	ListByVariable(ctx context.Context, variableID uuid.UUID) ([]*variableDomain.VariableVersion, error)
}

// SyncQueue enqueues platform sync jobs after variable changes.
type SyncQueue interface {
	EnqueueForEnvironment(ctx context.Context, environmentID uuid.UUID, trigger string) error
}

// VariableInput carries the fields for creating or updating a variable.
type VariableInput struct {
	ProjectID     uuid.UUID
	EnvironmentID uuid.UUID
	Key           string
	// Value is the plaintext. For secret variables it is sealed before
	// storage and never persisted as-is.
	Value  string
	Secret bool
	// Actor identifies who performed the change, recorded in version history.
	Actor string
}

// VariableUseCase defines the interface for variable management business logic.
type VariableUseCase interface {
	// CreateOrUpdate creates a variable or bumps an existing one to a new
	// version. Secret values are sealed under a fresh data key on every write.
	CreateOrUpdate(ctx context.Context, input VariableInput) (*variableDomain.Variable, error)
	// Get retrieves a variable and decrypts secret values.
	//
	// Security Note: for secret variables the returned Variable carries the
	// plaintext in the Plaintext field. Callers MUST zero it after use with
	// cryptoDomain.Zero(v.Plaintext).
	Get(ctx context.Context, environmentID uuid.UUID, key string) (*variableDomain.Variable, error)
	// List retrieves all variables of an environment without decrypting.
	List(ctx context.Context, environmentID uuid.UUID) ([]*variableDomain.Variable, error)
	// ListDecrypted retrieves all variables of an environment with secret
	// values decrypted. Same zeroing obligation as Get.
	ListDecrypted(ctx context.Context, environmentID uuid.UUID) ([]*variableDomain.Variable, error)
	// ListVersions retrieves the version history of a variable, newest first.
	ListVersions(ctx context.Context, environmentID uuid.UUID, key string) ([]*variableDomain.VariableVersion, error)
	// Delete soft-deletes a variable and appends a deletion version row.
	Delete(ctx context.Context, environmentID uuid.UUID, key, actor string) error
	// Rollback restores the value of an earlier version by appending a new
	// version. History stays linear; nothing is rewritten.
	Rollback(ctx context.Context, environmentID uuid.UUID, key string, version uint, actor string) (*variableDomain.Variable, error)
}
