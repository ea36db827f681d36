package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
)

// EnvelopeService implements the Envelope interface over a single master key.
//
// Layout of a bundle produced by Seal:
//   - a fresh random 32-byte data key encrypts the plaintext (Ciphertext, Nonce)
//   - the master key wraps the data key (WrappedKey, KeyNonce)
//
// The encryption context is mixed into both layers as associated data. A
// leaked bundle therefore exposes at most one value, and a bundle copied onto
// another variable fails authentication on open.
type EnvelopeService struct {
	aeadManager AEADManager
	masterKey   *cryptoDomain.MasterKey
	algorithm   cryptoDomain.Algorithm
}

// NewEnvelope creates an EnvelopeService sealing with the given algorithm.
// The master key must already be validated (32 bytes); NewMasterKey enforces this.
func NewEnvelope(
	aeadManager AEADManager,
	masterKey *cryptoDomain.MasterKey,
	algorithm cryptoDomain.Algorithm,
) *EnvelopeService {
	return &EnvelopeService{
		aeadManager: aeadManager,
		masterKey:   masterKey,
		algorithm:   algorithm,
	}
}

// Seal encrypts plaintext under a fresh data key bound to enc.
func (e *EnvelopeService) Seal(
	plaintext []byte,
	enc cryptoDomain.EncryptionContext,
) (*cryptoDomain.SealedBundle, error) {
	// Generate a fresh random 32-byte data key for this value
	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	defer cryptoDomain.Zero(dataKey)

	aad := enc.AAD()

	// Encrypt the plaintext under the data key
	dataCipher, err := e.aeadManager.CreateCipher(dataKey, e.algorithm)
	if err != nil {
		return nil, err
	}
	ciphertext, nonce, err := dataCipher.Encrypt(plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt value: %w", err)
	}

	// Wrap the data key under the master key with its own nonce
	masterCipher, err := e.aeadManager.CreateCipher(e.masterKey.Key, e.algorithm)
	if err != nil {
		return nil, err
	}
	wrappedKey, keyNonce, err := masterCipher.Encrypt(dataKey, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	return &cryptoDomain.SealedBundle{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		WrappedKey: wrappedKey,
		KeyNonce:   keyNonce,
		Algorithm:  e.algorithm,
	}, nil
}

// Open decrypts a bundle sealed with Seal. Every failure mode collapses into
// cryptoDomain.ErrDecryptionFailed so callers cannot distinguish a tampered
// tag from a context mismatch.
func (e *EnvelopeService) Open(
	bundle *cryptoDomain.SealedBundle,
	enc cryptoDomain.EncryptionContext,
) ([]byte, error) {
	if bundle == nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	aad := enc.AAD()

	// Unwrap the data key with the master key
	masterCipher, err := e.aeadManager.CreateCipher(e.masterKey.Key, bundle.Algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	dataKey, err := masterCipher.Decrypt(bundle.WrappedKey, bundle.KeyNonce, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer cryptoDomain.Zero(dataKey)

	// Decrypt the value with the data key
	dataCipher, err := e.aeadManager.CreateCipher(dataKey, bundle.Algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	plaintext, err := dataCipher.Decrypt(bundle.Ciphertext, bundle.Nonce, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}

// Rewrap decrypts a bundle and reseals the plaintext under a brand new data
// key. Used when a value must be re-protected without changing it (e.g. after
// a credential export or a cache purge).
func (e *EnvelopeService) Rewrap(
	bundle *cryptoDomain.SealedBundle,
	enc cryptoDomain.EncryptionContext,
) (*cryptoDomain.SealedBundle, error) {
	plaintext, err := e.Open(bundle, enc)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	return e.Seal(plaintext, enc)
}
