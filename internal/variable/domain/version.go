package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
)

// ChangeType tags what kind of change a version row records.
type ChangeType string

const (
	ChangeTypeCreated  ChangeType = "created"
	ChangeTypeUpdated  ChangeType = "updated"
	ChangeTypeDeleted  ChangeType = "deleted"
	ChangeTypeRollback ChangeType = "rollback"
)

// VariableVersion is an immutable, append-only record of one variable change.
// History is linear: a rollback appends a new version carrying the restored
// value rather than rewriting earlier rows. Each version owns its own sealed
// bundle, so old secret values stay retrievable after rotation.
type VariableVersion struct {
	ID         uuid.UUID
	VariableID uuid.UUID
	// Version is the variable's version number at the time of this change.
	Version uint
	// ChangeType is one of created, updated, deleted, rollback.
	ChangeType ChangeType
	// Value is the plaintext snapshot for non-secret variables.
	Value string
	// Bundle is the sealed snapshot for secret variables (nil otherwise).
	Bundle *cryptoDomain.SealedBundle
	// Actor identifies who or what made the change (user id, "rotation", ...).
	Actor     string
	CreatedAt time.Time
}
