package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envsync/internal/errors"
	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
)

const (
	// retryKeyPrefix namespaces pending rotation retries in redis.
	retryKeyPrefix = "rotation:retry:"

	// retryRetention keeps a retry discoverable after its scheduled time so
	// a slow scan cycle cannot lose it to key expiry.
	retryRetention = 24 * time.Hour

	// scanBatchSize is the COUNT hint per SCAN iteration.
	scanBatchSize = 100
)

// RedisRetryStore keeps pending rotation retries in redis, one key per
// variable, last-writer-wins. Due retries are found by scanning the key
// prefix; acceptable at moderate volume, a time-ordered queue would be needed
// beyond that.
type RedisRetryStore struct {
	client *redis.Client
}

// NewRedisRetryStore creates a retry store on top of an existing redis client.
func NewRedisRetryStore(client *redis.Client) *RedisRetryStore {
	return &RedisRetryStore{client: client}
}

func retryKey(variableID uuid.UUID) string {
	return retryKeyPrefix + variableID.String()
}

// Schedule stores a pending retry. The key expires a retention period after
// the scheduled time, bounding how long an unprocessed retry can linger.
func (s *RedisRetryStore) Schedule(ctx context.Context, retry rotationDomain.PendingRetry) error {
	data, err := json.Marshal(retry)
	if err != nil {
		return fmt.Errorf("failed to encode pending retry: %w", err)
	}

	ttl := time.Until(retry.ScheduledAt) + retryRetention
	if err := s.client.Set(ctx, retryKey(retry.VariableID), data, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// Remove deletes the pending retry for a variable. Missing keys are not an error.
func (s *RedisRetryStore) Remove(ctx context.Context, variableID uuid.UUID) error {
	if err := s.client.Del(ctx, retryKey(variableID)).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// ListDue scans all pending retries and returns those whose scheduled time
// has passed.
func (s *RedisRetryStore) ListDue(ctx context.Context, now time.Time) ([]rotationDomain.PendingRetry, error) {
	var (
		due    []rotationDomain.PendingRetry
		cursor uint64
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, retryKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if err == redis.Nil {
					continue // expired between scan and get
				}
				return nil, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
			}

			var retry rotationDomain.PendingRetry
			if err := json.Unmarshal(data, &retry); err != nil {
				return nil, fmt.Errorf("failed to decode pending retry %s: %w", key, err)
			}
			if !retry.ScheduledAt.After(now) {
				due = append(due, retry)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return due, nil
}
