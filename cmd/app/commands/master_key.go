package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
)

// RunCreateMasterKey generates a cryptographically secure 32-byte master key
// for envelope encryption. Key material is zeroed from memory after encoding.
//
// Without a KMS key URI the key is printed directly:
//   - MASTER_KEY="<base64-encoded-key>"
//
// With a KMS key URI the key is wrapped before output and the plaintext never
// leaves the process:
//   - KMS_KEY_URI="<uri>"
//   - MASTER_KEY_ENCRYPTED="<base64-encoded-kms-ciphertext>"
//
// Security: only use the plain MASTER_KEY output for local development. In
// production wrap the key with a cloud KMS (gcpkms, awskms, azurekeyvault,
// hashivault).
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	out io.Writer,
	kmsKeyURI string,
) error {
	// Generate a cryptographically secure 32-byte master key
	masterKey := make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsKeyURI == "" {
		encodedKey := base64.StdEncoding.EncodeToString(masterKey)

		fmt.Fprintln(out, "# Master Key Configuration (plain mode)")
		fmt.Fprintln(out, "# Copy this environment variable to your .env file or secrets manager.")
		fmt.Fprintln(out, "# For production, wrap the key with a KMS instead: --kms-key-uri=\"gcpkms://...\"")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "MASTER_KEY=\"%s\"\n", encodedKey)
		return nil
	}

	keeperInterface, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeperInterface.Close(); closeErr != nil {
			fmt.Fprintf(out, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	// The keeper interface only carries Decrypt; wrapping needs Encrypt
	keeper, ok := keeperInterface.(interface {
		Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	})
	if !ok {
		return fmt.Errorf("KMS keeper does not support encryption")
	}

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	encodedKey := base64.StdEncoding.EncodeToString(ciphertext)

	fmt.Fprintln(out, "# Master Key Configuration (KMS mode)")
	fmt.Fprintln(out, "# Copy these environment variables to your .env file or secrets manager.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	fmt.Fprintf(out, "MASTER_KEY_ENCRYPTED=\"%s\"\n", encodedKey)

	return nil
}
