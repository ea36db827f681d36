// Package mocks provides mock implementations for testing variable use cases.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// MockVariableRepository is a mock implementation of VariableRepository for testing.
type MockVariableRepository struct {
	mock.Mock
}

func (m *MockVariableRepository) Create(ctx context.Context, v *variableDomain.Variable) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVariableRepository) Update(ctx context.Context, v *variableDomain.Variable) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVariableRepository) UpdateRotationPolicy(ctx context.Context, v *variableDomain.Variable) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVariableRepository) GetByID(ctx context.Context, id uuid.UUID) (*variableDomain.Variable, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*variableDomain.Variable), args.Error(1)
}

func (m *MockVariableRepository) GetByEnvironmentAndKey(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) (*variableDomain.Variable, error) {
	args := m.Called(ctx, environmentID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*variableDomain.Variable), args.Error(1)
}

func (m *MockVariableRepository) ListByEnvironment(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	args := m.Called(ctx, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*variableDomain.Variable), args.Error(1)
}

func (m *MockVariableRepository) ListDueForRotation(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*variableDomain.Variable, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*variableDomain.Variable), args.Error(1)
}

func (m *MockVariableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVersionRepository is a mock implementation of VersionRepository for testing.
type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) Create(ctx context.Context, vv *variableDomain.VariableVersion) error {
	args := m.Called(ctx, vv)
	return args.Error(0)
}

func (m *MockVersionRepository) GetByVariableAndVersion(
	ctx context.Context,
	variableID uuid.UUID,
	version uint,
) (*variableDomain.VariableVersion, error) {
	args := m.Called(ctx, variableID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*variableDomain.VariableVersion), args.Error(1)
}

func (m *MockVersionRepository) ListByVariable(
	ctx context.Context,
	variableID uuid.UUID,
) ([]*variableDomain.VariableVersion, error) {
	args := m.Called(ctx, variableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*variableDomain.VariableVersion), args.Error(1)
}

// MockSyncQueue is a mock implementation of SyncQueue for testing.
type MockSyncQueue struct {
	mock.Mock
}

func (m *MockSyncQueue) EnqueueForEnvironment(
	ctx context.Context,
	environmentID uuid.UUID,
	trigger string,
) error {
	args := m.Called(ctx, environmentID, trigger)
	return args.Error(0)
}
