// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/envsync/internal/errors"
)

var (
	// variableKeyRegex matches environment-variable style keys: uppercase
	// letters, digits and underscores, not starting with a digit.
	variableKeyRegex = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// VariableKey validates that a string is a well-formed variable key
// (uppercase letters, digits and underscores, not starting with a digit).
var VariableKey = validation.NewStringRuleWithError(
	func(s string) bool {
		return variableKeyRegex.MatchString(s)
	},
	validation.NewError(
		"validation_variable_key",
		"must contain only uppercase letters, digits and underscores and must not start with a digit",
	),
)
