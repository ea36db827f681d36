package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	apperrors "github.com/allisson/envsync/internal/errors"
)

// bundleCacheKeyPrefix namespaces cached wrapped-key bundles in redis.
const bundleCacheKeyPrefix = "crypto:bundle:"

// RedisBundleCache caches sealed bundles in redis, keyed per variable.
//
// Only wrapped bundles are stored; the unwrapped data key never leaves the
// envelope service. Entries are last-writer-wins and expire after a short
// TTL, so a stale entry can at worst serve a bundle that was since rewrapped,
// which still opens correctly until invalidated.
type RedisBundleCache struct {
	client *redis.Client
}

// NewRedisBundleCache creates a bundle cache on top of an existing redis client.
func NewRedisBundleCache(client *redis.Client) *RedisBundleCache {
	return &RedisBundleCache{client: client}
}

// Get returns the cached bundle for a variable, or ErrNotFound on a miss.
func (c *RedisBundleCache) Get(ctx context.Context, variableID string) (*cryptoDomain.SealedBundle, error) {
	data, err := c.client.Get(ctx, bundleCacheKeyPrefix+variableID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}

	var bundle cryptoDomain.SealedBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode cached bundle: %w", err)
	}
	return &bundle, nil
}

// Set stores a bundle with the given TTL.
func (c *RedisBundleCache) Set(
	ctx context.Context,
	variableID string,
	bundle *cryptoDomain.SealedBundle,
	ttl time.Duration,
) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := c.client.Set(ctx, bundleCacheKeyPrefix+variableID, data, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// Invalidate removes a cached bundle. Missing keys are not an error.
func (c *RedisBundleCache) Invalidate(ctx context.Context, variableID string) error {
	if err := c.client.Del(ctx, bundleCacheKeyPrefix+variableID).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// NoOpBundleCache disables bundle caching. Every Get is a miss.
type NoOpBundleCache struct{}

// NewNoOpBundleCache creates a cache that never stores anything.
func NewNoOpBundleCache() *NoOpBundleCache {
	return &NoOpBundleCache{}
}

// Get always reports a miss.
func (c *NoOpBundleCache) Get(ctx context.Context, variableID string) (*cryptoDomain.SealedBundle, error) {
	return nil, apperrors.ErrNotFound
}

// Set discards the bundle.
func (c *NoOpBundleCache) Set(
	ctx context.Context,
	variableID string,
	bundle *cryptoDomain.SealedBundle,
	ttl time.Duration,
) error {
	return nil
}

// Invalidate is a no-op.
func (c *NoOpBundleCache) Invalidate(ctx context.Context, variableID string) error {
	return nil
}
