package service

import (
	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
)

// AEADManagerService resolves an Algorithm into a ready cipher instance. The
// envelope service goes through it for both the value layer and the key-wrap
// layer.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher creates an AEAD cipher for the given algorithm. Returns
// ErrInvalidKeySize when the key is not 32 bytes and ErrUnsupportedAlgorithm
// for unknown algorithms. The algorithm set is closed; there is no runtime
// registration.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != 32 {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	switch alg {
	case cryptoDomain.AESGCM:
		return NewAESGCM(key)
	case cryptoDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
