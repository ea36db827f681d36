package domain

import (
	"context"
	"encoding/base64"
	"fmt"
)

// MasterKey is the long-lived symmetric key that wraps per-value data keys.
//
// The key is the root of the envelope encryption hierarchy and is supplied
// externally: either directly as base64 configuration, or as a KMS-wrapped
// ciphertext unwrapped through a keeper at startup. Provisioning and rotation
// of the master key itself happen outside this system.
//
// Security considerations:
//   - The key must be exactly 32 bytes (256 bits) for both supported AEADs
//   - The key material should be generated with a cryptographically secure
//     random generator
//   - Call Close to zero the key material when shutting down
type MasterKey struct {
	Key []byte
}

// Close zeroes the master key material in memory.
func (m *MasterKey) Close() {
	Zero(m.Key)
	m.Key = nil
}

// KMSKeeper decrypts KMS-wrapped key material. *secrets.Keeper from
// gocloud.dev satisfies this interface.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// NewMasterKey validates raw key material and returns a MasterKey.
// Returns ErrInvalidKeySize if the material is not exactly 32 bytes.
func NewMasterKey(key []byte) (*MasterKey, error) {
	if len(key) != 32 {
		Zero(key)
		return nil, fmt.Errorf("%w: master key must be 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}
	return &MasterKey{Key: key}, nil
}

// LoadMasterKey loads the master key from configuration values.
//
// Two sources are supported:
//   - masterKeyB64: the key material itself, base64-encoded
//   - encryptedB64 + keeper: a KMS-wrapped key ciphertext, base64-encoded,
//     decrypted through the keeper
//
// Exactly one source must be provided. A missing or malformed key is a fatal
// configuration error; there is no silent fallback.
func LoadMasterKey(
	ctx context.Context,
	masterKeyB64 string,
	encryptedB64 string,
	keeper KMSKeeper,
) (*MasterKey, error) {
	switch {
	case masterKeyB64 != "":
		key, err := base64.StdEncoding.DecodeString(masterKeyB64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
		}
		return NewMasterKey(key)

	case encryptedB64 != "":
		if keeper == nil {
			return nil, fmt.Errorf("%w: MASTER_KEY_ENCRYPTED set without KMS_KEY_URI", ErrMasterKeyNotSet)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encryptedB64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
		}
		key, err := keeper.Decrypt(ctx, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap master key through KMS: %w", err)
		}
		return NewMasterKey(key)

	default:
		return nil, ErrMasterKeyNotSet
	}
}
