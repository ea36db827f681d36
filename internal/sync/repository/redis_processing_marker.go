package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envsync/internal/errors"
)

const (
	// processingKeyPrefix namespaces in-flight connection markers in redis.
	processingKeyPrefix = "sync:processing:"

	// processingTTL bounds how long a crashed worker can keep a connection
	// marked as in flight.
	processingTTL = 5 * time.Minute
)

// RedisProcessingMarker marks connections with an in-flight sync so
// concurrent workers skip them. The marker is best-effort: it expires on its
// own if the holder dies before releasing it.
type RedisProcessingMarker struct {
	client *redis.Client
}

// NewRedisProcessingMarker creates a processing marker on top of an existing redis client.
func NewRedisProcessingMarker(client *redis.Client) *RedisProcessingMarker {
	return &RedisProcessingMarker{client: client}
}

func processingKey(connectionID uuid.UUID) string {
	return processingKeyPrefix + connectionID.String()
}

// Acquire marks the connection as in flight. It returns false when another
// worker already holds the marker.
func (m *RedisProcessingMarker) Acquire(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	acquired, err := m.client.SetNX(ctx, processingKey(connectionID), "1", processingTTL).Result()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return acquired, nil
}

// Release clears the marker. Missing keys are not an error.
func (m *RedisProcessingMarker) Release(ctx context.Context, connectionID uuid.UUID) error {
	if err := m.client.Del(ctx, processingKey(connectionID)).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}
