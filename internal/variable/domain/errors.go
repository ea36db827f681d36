package domain

import (
	"github.com/allisson/envsync/internal/errors"
)

// Variable-specific error definitions.
var (
	// ErrVariableNotFound indicates no variable exists for the key in the environment.
	ErrVariableNotFound = errors.Wrap(errors.ErrNotFound, "variable not found")

	// ErrVersionNotFound indicates the requested version does not exist.
	ErrVersionNotFound = errors.Wrap(errors.ErrNotFound, "variable version not found")

	// ErrVariableDeleted indicates the variable was soft-deleted.
	ErrVariableDeleted = errors.Wrap(errors.ErrInvalidInput, "variable is deleted")

	// ErrNotSecret indicates a secret-only operation was attempted on a plain variable.
	ErrNotSecret = errors.Wrap(errors.ErrInvalidInput, "variable is not secret")
)
