package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/envsync/internal/errors"
)

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{name: "non-blank string", value: "hello", shouldErr: false},
		{name: "empty string", value: "", shouldErr: true},
		{name: "whitespace only", value: "   ", shouldErr: true},
		{name: "tabs and newlines", value: "\t\n", shouldErr: true},
		{name: "string with surrounding whitespace", value: "  hello  ", shouldErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotBlank.Validate(tt.value)
			if tt.shouldErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "must not be blank")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVariableKey(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{name: "simple key", value: "DATABASE_URL", shouldErr: false},
		{name: "single letter", value: "X", shouldErr: false},
		{name: "leading underscore", value: "_INTERNAL", shouldErr: false},
		{name: "digits after first char", value: "S3_BUCKET", shouldErr: false},
		{name: "empty string", value: "", shouldErr: true},
		{name: "lowercase", value: "database_url", shouldErr: true},
		{name: "leading digit", value: "1KEY", shouldErr: true},
		{name: "hyphen", value: "API-KEY", shouldErr: true},
		{name: "space", value: "API KEY", shouldErr: true},
		{name: "dot", value: "app.key", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VariableKey.Validate(tt.value)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("wraps as invalid input", func(t *testing.T) {
		err := WrapValidationError(errors.New("must not be blank"))
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "must not be blank")
	})
}
