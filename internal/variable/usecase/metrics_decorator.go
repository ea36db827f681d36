package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/metrics"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// variableUseCaseWithMetrics decorates VariableUseCase with metrics instrumentation.
type variableUseCaseWithMetrics struct {
	next    VariableUseCase
	metrics metrics.BusinessMetrics
}

// NewVariableUseCaseWithMetrics wraps a VariableUseCase with metrics recording.
func NewVariableUseCaseWithMetrics(useCase VariableUseCase, m metrics.BusinessMetrics) VariableUseCase {
	return &variableUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *variableUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	u.metrics.RecordOperation(ctx, "variable", operation, status)
	u.metrics.RecordDuration(ctx, "variable", operation, time.Since(start), status)
}

// CreateOrUpdate records metrics for variable creation/update operations.
func (u *variableUseCaseWithMetrics) CreateOrUpdate(
	ctx context.Context,
	input VariableInput,
) (*variableDomain.Variable, error) {
	start := time.Now()
	v, err := u.next.CreateOrUpdate(ctx, input)
	u.record(ctx, "variable_create_or_update", start, err)
	return v, err
}

// Get records metrics for variable retrieval operations.
func (u *variableUseCaseWithMetrics) Get(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) (*variableDomain.Variable, error) {
	start := time.Now()
	v, err := u.next.Get(ctx, environmentID, key)
	u.record(ctx, "variable_get", start, err)
	return v, err
}

// List records metrics for variable listing operations.
func (u *variableUseCaseWithMetrics) List(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	start := time.Now()
	variables, err := u.next.List(ctx, environmentID)
	u.record(ctx, "variable_list", start, err)
	return variables, err
}

// ListDecrypted records metrics for decrypted listing operations.
func (u *variableUseCaseWithMetrics) ListDecrypted(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	start := time.Now()
	variables, err := u.next.ListDecrypted(ctx, environmentID)
	u.record(ctx, "variable_list_decrypted", start, err)
	return variables, err
}

// ListVersions records metrics for version history listing operations.
func (u *variableUseCaseWithMetrics) ListVersions(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) ([]*variableDomain.VariableVersion, error) {
	start := time.Now()
	versions, err := u.next.ListVersions(ctx, environmentID, key)
	u.record(ctx, "variable_list_versions", start, err)
	return versions, err
}

// Delete records metrics for variable deletion operations.
func (u *variableUseCaseWithMetrics) Delete(
	ctx context.Context,
	environmentID uuid.UUID,
	key, actor string,
) error {
	start := time.Now()
	err := u.next.Delete(ctx, environmentID, key, actor)
	u.record(ctx, "variable_delete", start, err)
	return err
}

// Rollback records metrics for rollback operations.
func (u *variableUseCaseWithMetrics) Rollback(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	version uint,
	actor string,
) (*variableDomain.Variable, error) {
	start := time.Now()
	v, err := u.next.Rollback(ctx, environmentID, key, version, actor)
	u.record(ctx, "variable_rollback", start, err)
	return v, err
}
