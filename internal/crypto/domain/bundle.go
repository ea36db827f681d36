// Package domain defines the core cryptographic domain models for envelope encryption.
//
// It implements a two-tier key hierarchy: Master Key → DEK → Data. Every
// sealed value gets its own fresh data key, wrapped under the master key and
// stored alongside the ciphertext. Context binding mixes the owning variable's
// identity into the AEAD as associated data, so a bundle cannot be relocated
// to another variable without failing authentication.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SealedBundle holds everything needed to decrypt a sealed value, except the
// master key and the encryption context. The AEAD authentication tags are
// carried inside Ciphertext and WrappedKey as produced by the cipher.
type SealedBundle struct {
	// Ciphertext is the value encrypted under the data key (tag appended).
	Ciphertext []byte
	// Nonce is the random nonce used to encrypt the value.
	Nonce []byte
	// WrappedKey is the data key encrypted under the master key (tag appended).
	WrappedKey []byte
	// KeyNonce is the random nonce used to wrap the data key.
	KeyNonce []byte
	// Algorithm is the AEAD used for both layers of this bundle.
	Algorithm Algorithm
}

// EncryptionContext identifies the record a sealed value belongs to. It is
// authenticated but not encrypted: decrypting with a different context fails,
// which prevents ciphertext substitution across variables or environments.
type EncryptionContext struct {
	ProjectID     uuid.UUID
	EnvironmentID uuid.UUID
	VariableKey   string
}

// AAD returns the canonical associated-data encoding of the context.
// The encoding is stable across versions; changing it would make every
// existing bundle undecryptable.
func (c EncryptionContext) AAD() []byte {
	return fmt.Appendf(nil, "project=%s;environment=%s;key=%s", c.ProjectID, c.EnvironmentID, c.VariableKey)
}
