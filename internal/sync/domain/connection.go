// Package domain defines the core domain models for platform synchronization:
// connections to external deployment platforms, durable sync jobs and the
// structured results adapters return.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
)

// PlatformType identifies an external deployment platform.
type PlatformType string

const (
	// PlatformHeroku targets platforms with a whole-object merge-PATCH
	// config API.
	PlatformHeroku PlatformType = "heroku"
	// PlatformVercel targets platforms with a per-variable create API.
	PlatformVercel PlatformType = "vercel"
)

// ConnectionStatus is the health of a platform connection.
type ConnectionStatus string

const (
	ConnectionConnected ConnectionStatus = "connected"
	ConnectionError     ConnectionStatus = "error"
)

// PlatformConnection links one environment to one external platform.
// Credentials are opaque to the engine and stored sealed under the same
// envelope scheme as secret variables.
type PlatformConnection struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	EnvironmentID uuid.UUID
	Platform      PlatformType
	// CredentialsBundle is the sealed JSON credentials map.
	CredentialsBundle *cryptoDomain.SealedBundle
	// TargetResource is the platform-side resource receiving variables
	// (app name, project id, ...).
	TargetResource string
	Status         ConnectionStatus
	LastError      *string
	LastSyncAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EncryptionContext returns the context binding sealed credentials to this
// connection.
func (c *PlatformConnection) EncryptionContext() cryptoDomain.EncryptionContext {
	return cryptoDomain.EncryptionContext{
		ProjectID:     c.ProjectID,
		EnvironmentID: c.EnvironmentID,
		VariableKey:   "connection:" + c.ID.String(),
	}
}
