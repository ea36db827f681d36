package service

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AEAD is shared by both ciphers, so both run through the same behavior suite.
func cipherConstructors() map[string]func(key []byte) (AEAD, error) {
	return map[string]func(key []byte) (AEAD, error){
		"aes-gcm": func(key []byte) (AEAD, error) {
			return NewAESGCM(key)
		},
		"chacha20-poly1305": func(key []byte) (AEAD, error) {
			return NewChaCha20Poly1305(key)
		},
	}
}

func randomKey(t *testing.T, size int) []byte {
	t.Helper()
	key := make([]byte, size)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestCipher_KeySize(t *testing.T) {
	for name, newCipher := range cipherConstructors() {
		t.Run(name, func(t *testing.T) {
			c, err := newCipher(randomKey(t, 32))
			assert.NoError(t, err)
			assert.NotNil(t, c)

			for _, size := range []int{16, 24, 64} {
				c, err := newCipher(randomKey(t, size))
				assert.Error(t, err)
				assert.Nil(t, c)
			}
		})
	}
}

func TestCipher_Encrypt(t *testing.T) {
	for name, newCipher := range cipherConstructors() {
		t.Run(name, func(t *testing.T) {
			c, err := newCipher(randomKey(t, 32))
			require.NoError(t, err)

			plaintext := []byte("postgres://user:pass@db:5432/app")
			aad := []byte("project-1|env-1|DATABASE_URL")

			ciphertext, nonce, err := c.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.NotEqual(t, plaintext, ciphertext)
			assert.Len(t, nonce, 12)
			// 16-byte tag appended
			assert.Len(t, ciphertext, len(plaintext)+16)

			// Encryption without AAD and of empty plaintext both succeed
			_, _, err = c.Encrypt(plaintext, nil)
			assert.NoError(t, err)
			_, _, err = c.Encrypt([]byte{}, aad)
			assert.NoError(t, err)

			// Fresh nonce per call
			_, nonce2, err := c.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.NotEqual(t, nonce, nonce2)
		})
	}
}

func TestCipher_Decrypt(t *testing.T) {
	for name, newCipher := range cipherConstructors() {
		t.Run(name, func(t *testing.T) {
			c, err := newCipher(randomKey(t, 32))
			require.NoError(t, err)

			plaintext := []byte("sk_live_abcdef123456")
			aad := []byte("project-1|env-1|STRIPE_KEY")

			ciphertext, nonce, err := c.Encrypt(plaintext, aad)
			require.NoError(t, err)

			decrypted, err := c.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(plaintext, decrypted))

			// Context mismatch fails authentication
			_, err = c.Decrypt(ciphertext, nonce, []byte("project-1|env-2|STRIPE_KEY"))
			assert.Error(t, err)

			// Wrong nonce fails
			_, err = c.Decrypt(ciphertext, randomKey(t, 12), aad)
			assert.Error(t, err)

			// Tampered ciphertext fails
			tampered := append([]byte(nil), ciphertext...)
			tampered[0] ^= 1
			_, err = c.Decrypt(tampered, nonce, aad)
			assert.Error(t, err)
		})
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		plaintext []byte
	}{
		{name: "short value", plaintext: []byte("on")},
		{name: "large value", plaintext: bytes.Repeat([]byte("x"), 64*1024)},
		{name: "unicode value", plaintext: []byte("pässwörd 世界 🔐")},
		{name: "empty value", plaintext: []byte{}},
	}

	for name, newCipher := range cipherConstructors() {
		t.Run(name, func(t *testing.T) {
			c, err := newCipher(randomKey(t, 32))
			require.NoError(t, err)

			aad := []byte("project-1|env-1|SOME_KEY")
			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					ciphertext, nonce, err := c.Encrypt(tc.plaintext, aad)
					require.NoError(t, err)

					decrypted, err := c.Decrypt(ciphertext, nonce, aad)
					require.NoError(t, err)
					assert.True(t, bytes.Equal(tc.plaintext, decrypted))
				})
			}
		})
	}
}

func TestCipher_CrossCipherCiphertextRejected(t *testing.T) {
	key := randomKey(t, 32)

	gcm, err := NewAESGCM(key)
	require.NoError(t, err)
	chacha, err := NewChaCha20Poly1305(key)
	require.NoError(t, err)

	aad := []byte("project-1|env-1|API_KEY")
	ciphertext, nonce, err := gcm.Encrypt([]byte("value"), aad)
	require.NoError(t, err)

	// Same key, different algorithm: must not decrypt
	_, err = chacha.Decrypt(ciphertext, nonce, aad)
	assert.Error(t, err)
}
