package domain

import (
	"github.com/allisson/envsync/internal/errors"
)

// Rotation-specific error definitions.
var (
	// ErrRotationNotEnabled indicates the variable has no active rotation policy.
	ErrRotationNotEnabled = errors.Wrap(errors.ErrInvalidInput, "rotation is not enabled for this variable")

	// ErrInvalidInterval indicates the rotation interval is below one day.
	ErrInvalidInterval = errors.Wrap(errors.ErrInvalidInput, "rotation interval must be at least 1 day")

	// ErrUnknownProvider indicates no value source exists for the provider name.
	ErrUnknownProvider = errors.Wrap(errors.ErrInvalidInput, "unknown rotation provider")
)
