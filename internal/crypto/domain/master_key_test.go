package domain

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeeper struct {
	plaintext []byte
	err       error
}

func (f *fakeKeeper) Decrypt(_ context.Context, _ []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plaintext, nil
}

func (f *fakeKeeper) Close() error { return nil }

func TestNewMasterKey(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)

		mk, err := NewMasterKey(key)
		require.NoError(t, err)
		assert.Equal(t, key, mk.Key)
	})

	t.Run("wrong key size fails", func(t *testing.T) {
		for _, size := range []int{0, 16, 31, 33, 64} {
			mk, err := NewMasterKey(make([]byte, size))
			assert.Nil(t, mk)
			assert.ErrorIs(t, err, ErrInvalidKeySize)
		}
	})
}

func TestMasterKey_Close(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	mk, err := NewMasterKey(key)
	require.NoError(t, err)

	mk.Close()
	assert.Nil(t, mk.Key)
	// The original slice must be zeroed as well
	assert.Equal(t, make([]byte, 32), key)
}

func TestLoadMasterKey(t *testing.T) {
	ctx := context.Background()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)

	t.Run("from base64 config", func(t *testing.T) {
		mk, err := LoadMasterKey(ctx, encoded, "", nil)
		require.NoError(t, err)
		assert.Equal(t, raw, mk.Key)
	})

	t.Run("missing key is fatal", func(t *testing.T) {
		mk, err := LoadMasterKey(ctx, "", "", nil)
		assert.Nil(t, mk)
		assert.ErrorIs(t, err, ErrMasterKeyNotSet)
	})

	t.Run("invalid base64 is fatal", func(t *testing.T) {
		mk, err := LoadMasterKey(ctx, "not-base64!!!", "", nil)
		assert.Nil(t, mk)
		assert.ErrorIs(t, err, ErrInvalidMasterKeyBase64)
	})

	t.Run("wrong-length key is fatal", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("too-short"))
		mk, err := LoadMasterKey(ctx, short, "", nil)
		assert.Nil(t, mk)
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("from KMS keeper", func(t *testing.T) {
		keeper := &fakeKeeper{plaintext: raw}
		ciphertext := base64.StdEncoding.EncodeToString([]byte("wrapped-key-material"))

		mk, err := LoadMasterKey(ctx, "", ciphertext, keeper)
		require.NoError(t, err)
		assert.Equal(t, raw, mk.Key)
	})

	t.Run("KMS unwrap failure is fatal", func(t *testing.T) {
		keeper := &fakeKeeper{err: errors.New("kms unavailable")}
		ciphertext := base64.StdEncoding.EncodeToString([]byte("wrapped-key-material"))

		mk, err := LoadMasterKey(ctx, "", ciphertext, keeper)
		assert.Nil(t, mk)
		assert.Error(t, err)
	})

	t.Run("encrypted key without keeper is fatal", func(t *testing.T) {
		ciphertext := base64.StdEncoding.EncodeToString([]byte("wrapped-key-material"))
		mk, err := LoadMasterKey(ctx, "", ciphertext, nil)
		assert.Nil(t, mk)
		assert.ErrorIs(t, err, ErrMasterKeyNotSet)
	})
}

func TestEncryptionContext_AAD(t *testing.T) {
	ctx1 := EncryptionContext{VariableKey: "DATABASE_URL"}
	ctx2 := EncryptionContext{VariableKey: "API_KEY"}

	// Stable for the same context, distinct across contexts
	assert.Equal(t, ctx1.AAD(), ctx1.AAD())
	assert.NotEqual(t, ctx1.AAD(), ctx2.AAD())
	assert.Contains(t, string(ctx1.AAD()), "key=DATABASE_URL")
}
