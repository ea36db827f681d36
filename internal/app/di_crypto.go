package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
)

// MasterKey returns the loaded master key.
// The key is loaded once, either directly from configuration or by unwrapping
// the encrypted key material through the configured KMS keeper.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	c.masterKeyInit.Do(func() {
		masterKey, err := c.initMasterKey()
		if err != nil {
			c.initErrors["masterKey"] = err
			return
		}
		c.masterKey = masterKey
	})
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// Envelope returns the envelope encryption service.
func (c *Container) Envelope() (cryptoService.Envelope, error) {
	c.envelopeInit.Do(func() {
		envelope, err := c.initEnvelope()
		if err != nil {
			c.initErrors["envelope"] = err
			return
		}
		c.envelope = envelope
	})
	if storedErr, exists := c.initErrors["envelope"]; exists {
		return nil, storedErr
	}
	return c.envelope, nil
}

// BundleCache returns the wrapped-key bundle cache.
// A no-op cache is returned when the cache TTL is zero.
func (c *Container) BundleCache() (cryptoService.BundleCache, error) {
	c.bundleCacheInit.Do(func() {
		bundleCache, err := c.initBundleCache()
		if err != nil {
			c.initErrors["bundleCache"] = err
			return
		}
		c.bundleCache = bundleCache
	})
	if storedErr, exists := c.initErrors["bundleCache"]; exists {
		return nil, storedErr
	}
	return c.bundleCache, nil
}

// initMasterKey loads the master key from configuration or through KMS.
func (c *Container) initMasterKey() (*cryptoDomain.MasterKey, error) {
	ctx := context.Background()

	var keeper cryptoDomain.KMSKeeper
	if c.config.KMSKeyURI != "" {
		var err error
		keeper, err = cryptoService.NewKMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
		}
	}

	masterKey, err := cryptoDomain.LoadMasterKey(ctx, c.config.MasterKey, c.config.MasterKeyEncrypted, keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}

	return masterKey, nil
}

// initEnvelope creates the envelope service with the configured algorithm.
func (c *Container) initEnvelope() (cryptoService.Envelope, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key for envelope: %w", err)
	}

	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.EncryptionAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption algorithm: %w", err)
	}

	return cryptoService.NewEnvelope(cryptoService.NewAEADManager(), masterKey, algorithm), nil
}

// initBundleCache creates the bundle cache backed by redis.
func (c *Container) initBundleCache() (cryptoService.BundleCache, error) {
	if c.config.BundleCacheTTL <= 0 {
		return cryptoService.NewNoOpBundleCache(), nil
	}

	redisClient, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for bundle cache: %w", err)
	}

	return cryptoService.NewRedisBundleCache(redisClient), nil
}
