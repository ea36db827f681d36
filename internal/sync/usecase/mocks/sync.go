// Package mocks provides mock implementations for testing sync use cases.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/envsync/internal/sync/adapter"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

// MockConnectionRepository is a mock implementation of ConnectionRepository for testing.
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Create(ctx context.Context, connection *syncDomain.PlatformConnection) error {
	args := m.Called(ctx, connection)
	return args.Error(0)
}

func (m *MockConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*syncDomain.PlatformConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncDomain.PlatformConnection), args.Error(1)
}

func (m *MockConnectionRepository) ListByEnvironment(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*syncDomain.PlatformConnection, error) {
	args := m.Called(ctx, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*syncDomain.PlatformConnection), args.Error(1)
}

func (m *MockConnectionRepository) UpdateStatus(ctx context.Context, connection *syncDomain.PlatformConnection) error {
	args := m.Called(ctx, connection)
	return args.Error(0)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockJobRepository is a mock implementation of JobRepository for testing.
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *syncDomain.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetPendingJobs(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*syncDomain.SyncJob, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*syncDomain.SyncJob), args.Error(1)
}

func (m *MockJobRepository) Update(ctx context.Context, job *syncDomain.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) ListByConnection(
	ctx context.Context,
	connectionID uuid.UUID,
	limit int,
) ([]*syncDomain.SyncJob, error) {
	args := m.Called(ctx, connectionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*syncDomain.SyncJob), args.Error(1)
}

// MockLogRepository is a mock implementation of LogRepository for testing.
type MockLogRepository struct {
	mock.Mock
}

func (m *MockLogRepository) Create(ctx context.Context, log *syncDomain.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockLogRepository) ListByConnection(
	ctx context.Context,
	connectionID uuid.UUID,
	limit int,
) ([]*syncDomain.SyncLog, error) {
	args := m.Called(ctx, connectionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*syncDomain.SyncLog), args.Error(1)
}

// MockProcessingMarker is a mock implementation of ProcessingMarker for testing.
type MockProcessingMarker struct {
	mock.Mock
}

func (m *MockProcessingMarker) Acquire(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, connectionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProcessingMarker) Release(ctx context.Context, connectionID uuid.UUID) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

// MockAdapter is a mock implementation of adapter.Adapter for testing.
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Platform() syncDomain.PlatformType {
	args := m.Called()
	return args.Get(0).(syncDomain.PlatformType)
}

func (m *MockAdapter) Authenticate(ctx context.Context, creds adapter.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *MockAdapter) TestConnection(ctx context.Context, creds adapter.Credentials, targetResource string) error {
	args := m.Called(ctx, creds, targetResource)
	return args.Error(0)
}

func (m *MockAdapter) PushVariables(
	ctx context.Context,
	creds adapter.Credentials,
	targetResource string,
	vars []syncDomain.EnvVar,
) (*syncDomain.SyncResult, error) {
	args := m.Called(ctx, creds, targetResource, vars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncDomain.SyncResult), args.Error(1)
}

// MockAdapterResolver is a mock implementation of AdapterResolver for testing.
type MockAdapterResolver struct {
	mock.Mock
}

func (m *MockAdapterResolver) Resolve(platform syncDomain.PlatformType) (adapter.Adapter, error) {
	args := m.Called(platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(adapter.Adapter), args.Error(1)
}
