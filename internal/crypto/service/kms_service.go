package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"

	// Register KMS provider drivers selected by the key URI scheme
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens keepers that wrap and unwrap the envelope master key.
// The master key never touches the database in plaintext; a keeper opened
// through this service decrypts it at startup and encrypts it when a new
// master key is generated.
type KMSService interface {
	// OpenKeeper opens a keeper for the KMS provider selected by the
	// keyURI scheme (gcpkms://, awskms://, azurekeyvault://, hashivault://,
	// base64key:// for local development).
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

type kmsService struct{}

// NewKMSService creates a KMS service backed by gocloud.dev/secrets.
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
