// Package mocks provides mock implementations for testing rotation use cases.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
)

// MockAttemptRepository is a mock implementation of AttemptRepository for testing.
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *rotationDomain.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListByVariable(
	ctx context.Context,
	variableID uuid.UUID,
	limit int,
) ([]*rotationDomain.Attempt, error) {
	args := m.Called(ctx, variableID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rotationDomain.Attempt), args.Error(1)
}

// MockRetryStore is a mock implementation of RetryStore for testing.
type MockRetryStore struct {
	mock.Mock
}

func (m *MockRetryStore) Schedule(ctx context.Context, retry rotationDomain.PendingRetry) error {
	args := m.Called(ctx, retry)
	return args.Error(0)
}

func (m *MockRetryStore) Remove(ctx context.Context, variableID uuid.UUID) error {
	args := m.Called(ctx, variableID)
	return args.Error(0)
}

func (m *MockRetryStore) ListDue(ctx context.Context, now time.Time) ([]rotationDomain.PendingRetry, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rotationDomain.PendingRetry), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier for testing.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(
	ctx context.Context,
	projectID uuid.UUID,
	event string,
	data map[string]any,
) error {
	args := m.Called(ctx, projectID, event, data)
	return args.Error(0)
}
