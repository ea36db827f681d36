package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/metrics"
	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
)

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *rotationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	u.metrics.RecordOperation(ctx, "rotation", operation, status)
	u.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), status)
}

// EnableRotation records metrics for rotation enable operations.
func (u *rotationUseCaseWithMetrics) EnableRotation(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	intervalDays int,
	provider string,
) error {
	start := time.Now()
	err := u.next.EnableRotation(ctx, environmentID, key, intervalDays, provider)
	u.record(ctx, "rotation_enable", start, err)
	return err
}

// DisableRotation records metrics for rotation disable operations.
func (u *rotationUseCaseWithMetrics) DisableRotation(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) error {
	start := time.Now()
	err := u.next.DisableRotation(ctx, environmentID, key)
	u.record(ctx, "rotation_disable", start, err)
	return err
}

// UpdateInterval records metrics for rotation interval updates.
func (u *rotationUseCaseWithMetrics) UpdateInterval(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	intervalDays int,
) error {
	start := time.Now()
	err := u.next.UpdateInterval(ctx, environmentID, key, intervalDays)
	u.record(ctx, "rotation_update_interval", start, err)
	return err
}

// Rotate records metrics for on-demand rotation operations.
func (u *rotationUseCaseWithMetrics) Rotate(
	ctx context.Context,
	environmentID uuid.UUID,
	key, actor string,
) error {
	start := time.Now()
	err := u.next.Rotate(ctx, environmentID, key, actor)
	u.record(ctx, "rotation_rotate", start, err)
	return err
}

// RotateDue records metrics for scheduled rotation scans.
func (u *rotationUseCaseWithMetrics) RotateDue(ctx context.Context) (int, error) {
	start := time.Now()
	rotated, err := u.next.RotateDue(ctx)
	u.record(ctx, "rotation_rotate_due", start, err)
	return rotated, err
}

// ProcessPendingRetries records metrics for retry processing operations.
func (u *rotationUseCaseWithMetrics) ProcessPendingRetries(ctx context.Context) (int, error) {
	start := time.Now()
	processed, err := u.next.ProcessPendingRetries(ctx)
	u.record(ctx, "rotation_process_retries", start, err)
	return processed, err
}

// ListAttempts records metrics for attempt history listing operations.
func (u *rotationUseCaseWithMetrics) ListAttempts(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	limit int,
) ([]*rotationDomain.Attempt, error) {
	start := time.Now()
	attempts, err := u.next.ListAttempts(ctx, environmentID, key, limit)
	u.record(ctx, "rotation_list_attempts", start, err)
	return attempts, err
}
