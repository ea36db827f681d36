// Package domain defines the core domain models for configuration variables.
// Variables hold per-environment configuration values, plain or secret. Secret
// values are always stored as sealed bundles under envelope encryption, and
// every change appends an immutable version row.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
)

// Variable represents one configuration entry in an environment.
//
// Invariant: Secret == true implies Bundle is non-nil and Value is empty
// outside of decrypt calls. The plaintext of a secret only ever lives in the
// Plaintext field, populated by the use case and never persisted.
type Variable struct {
	// ID is the unique identifier (UUIDv7).
	ID uuid.UUID
	// ProjectID is the owning project.
	ProjectID uuid.UUID
	// EnvironmentID is the owning environment.
	EnvironmentID uuid.UUID
	// Key is the variable name (e.g., "DATABASE_URL"), unique per environment.
	Key string
	// Value is the plaintext value for non-secret variables.
	Value string
	// Secret indicates the value is sealed under envelope encryption.
	Secret bool
	// Bundle is the sealed value for secret variables (nil otherwise).
	Bundle *cryptoDomain.SealedBundle
	// Plaintext holds the decrypted secret value in memory only; must be
	// zeroed after use.
	Plaintext []byte `json:"-"`
	// Version is the monotonically increasing version number for this variable.
	Version uint

	// RotationEnabled indicates the variable is under scheduled rotation.
	RotationEnabled bool
	// RotationIntervalDays is the rotation interval in days (≥ 1 when enabled).
	RotationIntervalDays int
	// RotationNextDueAt is when the next rotation is due (nil when disabled).
	RotationNextDueAt *time.Time
	// RotationProvider selects the value source for rotation (empty for random).
	RotationProvider string

	CreatedAt time.Time
	UpdatedAt time.Time
	// DeletedAt marks when this variable was soft-deleted (nil if active).
	DeletedAt *time.Time
}

// EncryptionContext returns the context binding sealed values to this variable.
func (v *Variable) EncryptionContext() cryptoDomain.EncryptionContext {
	return cryptoDomain.EncryptionContext{
		ProjectID:     v.ProjectID,
		EnvironmentID: v.EnvironmentID,
		VariableKey:   v.Key,
	}
}
