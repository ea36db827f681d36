package domain

import (
	"github.com/allisson/envsync/internal/errors"
)

// Sync-specific error definitions.
var (
	// ErrConnectionNotFound indicates no platform connection exists for the id.
	ErrConnectionNotFound = errors.Wrap(errors.ErrNotFound, "platform connection not found")

	// ErrUnknownPlatform indicates the platform type has no registered adapter.
	ErrUnknownPlatform = errors.Wrap(errors.ErrInvalidInput, "unknown platform type")

	// ErrAuthenticationFailed indicates the platform rejected the stored credentials.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrInvalidInput, "platform authentication failed")
)
