package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("clears a decrypted value", func(t *testing.T) {
		b := []byte("s3cret-value")
		Zero(b)
		assert.True(t, bytes.Equal(b, make([]byte, len(b))))
	})

	t.Run("nil and empty slices are no-ops", func(t *testing.T) {
		assert.NotPanics(t, func() { Zero(nil) })
		assert.NotPanics(t, func() { Zero([]byte{}) })
	})

	t.Run("clears key-sized material", func(t *testing.T) {
		b := make([]byte, 32)
		for i := range b {
			b[i] = byte(i + 1)
		}
		Zero(b)
		assert.True(t, bytes.Equal(b, make([]byte, 32)))
	})
}
