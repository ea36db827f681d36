// Package service provides the value sources used by rotation to obtain
// replacement secret values.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
)

const alphanumericChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Provider names. The set is closed: sources are resolved by NewValueSource,
// never by runtime registration.
const (
	ProviderRandom    = "random"
	ProviderRandomHex = "random-hex"
)

// ValueSource produces a replacement value for a secret under rotation.
type ValueSource interface {
	Name() string
	// RotateSecret returns the new value. External-system-backed sources may
	// use the current value to perform the remote rotation.
	RotateSecret(ctx context.Context, key, currentValue string) (string, error)
	// TestConnection verifies the source can be reached before rotation runs.
	TestConnection(ctx context.Context) error
}

// NewValueSource resolves a provider name into a ValueSource. An empty name
// selects the random alphanumeric source.
func NewValueSource(provider string, length int) (ValueSource, error) {
	switch provider {
	case "", ProviderRandom:
		return &randomValueSource{length: length}, nil
	case ProviderRandomHex:
		return &randomHexValueSource{length: length}, nil
	default:
		return nil, rotationDomain.ErrUnknownProvider
	}
}

// randomValueSource generates cryptographically strong alphanumeric values.
type randomValueSource struct {
	length int
}

func (s *randomValueSource) Name() string { return ProviderRandom }

func (s *randomValueSource) RotateSecret(_ context.Context, _, _ string) (string, error) {
	value := make([]byte, s.length)
	charsLen := big.NewInt(int64(len(alphanumericChars)))

	for i := 0; i < s.length; i++ {
		n, err := rand.Int(rand.Reader, charsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random character: %w", err)
		}
		value[i] = alphanumericChars[n.Int64()]
	}

	return string(value), nil
}

func (s *randomValueSource) TestConnection(_ context.Context) error { return nil }

// randomHexValueSource generates hex-encoded random values of the same length.
type randomHexValueSource struct {
	length int
}

func (s *randomHexValueSource) Name() string { return ProviderRandomHex }

func (s *randomHexValueSource) RotateSecret(_ context.Context, _, _ string) (string, error) {
	// Two hex characters per byte, rounded up for odd lengths.
	raw := make([]byte, (s.length+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(raw)[:s.length], nil
}

func (s *randomHexValueSource) TestConnection(_ context.Context) error { return nil }
