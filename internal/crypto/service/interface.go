// Package service provides cryptographic services for envelope encryption.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and the envelope
// Seal/Open/Rewrap operations used for every secret value.
package service

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Envelope defines envelope encryption over a master key.
//
// Every Seal generates a fresh random data key, encrypts the plaintext under
// it, wraps the data key under the master key, and returns both ciphertexts
// as one bundle. The encryption context is authenticated into both layers, so
// a bundle opened with a different context fails.
type Envelope interface {
	// Seal encrypts plaintext under a fresh data key bound to enc.
	Seal(plaintext []byte, enc cryptoDomain.EncryptionContext) (*cryptoDomain.SealedBundle, error)

	// Open decrypts a bundle. Any failure (tampered ciphertext, tampered
	// wrapped key, wrong context, malformed input) surfaces as
	// cryptoDomain.ErrDecryptionFailed without further detail.
	Open(bundle *cryptoDomain.SealedBundle, enc cryptoDomain.EncryptionContext) ([]byte, error)

	// Rewrap decrypts a bundle and reseals the plaintext under a brand new
	// data key. The plaintext is zeroed before returning.
	Rewrap(bundle *cryptoDomain.SealedBundle, enc cryptoDomain.EncryptionContext) (*cryptoDomain.SealedBundle, error)
}

// BundleCache is a short-lived cache of sealed bundles keyed by variable id.
// Implementations must never cache unwrapped data keys, only wrapped bundles.
type BundleCache interface {
	Get(ctx context.Context, variableID string) (*cryptoDomain.SealedBundle, error)
	Set(ctx context.Context, variableID string, bundle *cryptoDomain.SealedBundle, ttl time.Duration) error
	// Invalidate removes a cached bundle; called on rewrap and on purge.
	Invalidate(ctx context.Context, variableID string) error
}
