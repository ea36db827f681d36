package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/metrics"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

// syncUseCaseWithMetrics decorates SyncUseCase with metrics instrumentation.
type syncUseCaseWithMetrics struct {
	next    SyncUseCase
	metrics metrics.BusinessMetrics
}

// NewSyncUseCaseWithMetrics wraps a SyncUseCase with metrics recording.
func NewSyncUseCaseWithMetrics(useCase SyncUseCase, m metrics.BusinessMetrics) SyncUseCase {
	return &syncUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *syncUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	u.metrics.RecordOperation(ctx, "sync", operation, status)
	u.metrics.RecordDuration(ctx, "sync", operation, time.Since(start), status)
}

// CreateConnection records metrics for connection creation operations.
func (u *syncUseCaseWithMetrics) CreateConnection(
	ctx context.Context,
	input ConnectionInput,
) (*syncDomain.PlatformConnection, error) {
	start := time.Now()
	connection, err := u.next.CreateConnection(ctx, input)
	u.record(ctx, "sync_create_connection", start, err)
	return connection, err
}

// GetConnection records metrics for connection retrieval operations.
func (u *syncUseCaseWithMetrics) GetConnection(
	ctx context.Context,
	id uuid.UUID,
) (*syncDomain.PlatformConnection, error) {
	start := time.Now()
	connection, err := u.next.GetConnection(ctx, id)
	u.record(ctx, "sync_get_connection", start, err)
	return connection, err
}

// ListConnections records metrics for connection listing operations.
func (u *syncUseCaseWithMetrics) ListConnections(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*syncDomain.PlatformConnection, error) {
	start := time.Now()
	connections, err := u.next.ListConnections(ctx, environmentID)
	u.record(ctx, "sync_list_connections", start, err)
	return connections, err
}

// DeleteConnection records metrics for connection deletion operations.
func (u *syncUseCaseWithMetrics) DeleteConnection(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := u.next.DeleteConnection(ctx, id)
	u.record(ctx, "sync_delete_connection", start, err)
	return err
}

// TestConnection records metrics for connection test operations.
func (u *syncUseCaseWithMetrics) TestConnection(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := u.next.TestConnection(ctx, id)
	u.record(ctx, "sync_test_connection", start, err)
	return err
}

// EnqueueForEnvironment records metrics for enqueue operations.
func (u *syncUseCaseWithMetrics) EnqueueForEnvironment(
	ctx context.Context,
	environmentID uuid.UUID,
	trigger string,
) error {
	start := time.Now()
	err := u.next.EnqueueForEnvironment(ctx, environmentID, trigger)
	u.record(ctx, "sync_enqueue", start, err)
	return err
}

// ProcessJobs records metrics for job processing operations.
func (u *syncUseCaseWithMetrics) ProcessJobs(ctx context.Context) (int, error) {
	start := time.Now()
	processed, err := u.next.ProcessJobs(ctx)
	u.record(ctx, "sync_process_jobs", start, err)
	return processed, err
}

// ListLogs records metrics for sync log listing operations.
func (u *syncUseCaseWithMetrics) ListLogs(
	ctx context.Context,
	connectionID uuid.UUID,
	limit int,
) ([]*syncDomain.SyncLog, error) {
	start := time.Now()
	logs, err := u.next.ListLogs(ctx, connectionID, limit)
	u.record(ctx, "sync_list_logs", start, err)
	return logs, err
}
