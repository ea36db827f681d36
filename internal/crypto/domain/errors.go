package domain

import (
	"github.com/allisson/envsync/internal/errors"
)

// Cryptographic operation error definitions.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	// All keys (master key and data keys) must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrConfiguration, "invalid key size")

	// ErrMasterKeyNotSet indicates no master key source was configured.
	// Fatal at startup or first use.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrConfiguration, "master key not set")

	// ErrInvalidMasterKeyBase64 indicates the configured master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrConfiguration, "invalid master key base64")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong key used
	//   - Ciphertext or wrapped key tampered with (authentication failure)
	//   - Encryption context mismatch (value moved across variables)
	//   - Corrupted or malformed bundle
	//
	// For security reasons, the specific cause is never disclosed; every
	// failure mode surfaces as this one error kind.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
