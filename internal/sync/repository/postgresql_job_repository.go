package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

const jobColumns = `id, connection_id, environment_id, trigger_event, status, retries,
	last_error, scheduled_at, processed_at, created_at, updated_at`

// PostgreSQLJobRepository implements SyncJob persistence for PostgreSQL.
// Pending jobs are claimed with FOR UPDATE SKIP LOCKED so multiple workers
// never process the same job twice.
type PostgreSQLJobRepository struct {
	db *sql.DB
}

// NewPostgreSQLJobRepository creates a new PostgreSQLJobRepository.
func NewPostgreSQLJobRepository(db *sql.DB) *PostgreSQLJobRepository {
	return &PostgreSQLJobRepository{db: db}
}

func scanJob(row interface{ Scan(dest ...any) error }) (*syncDomain.SyncJob, error) {
	var job syncDomain.SyncJob

	err := row.Scan(
		&job.ID,
		&job.ConnectionID,
		&job.EnvironmentID,
		&job.Trigger,
		&job.Status,
		&job.Retries,
		&job.LastError,
		&job.ScheduledAt,
		&job.ProcessedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// Create inserts a new sync job.
func (r *PostgreSQLJobRepository) Create(ctx context.Context, job *syncDomain.SyncJob) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO sync_jobs (` + jobColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, job.ID, job.ConnectionID, job.EnvironmentID,
		job.Trigger, job.Status, job.Retries, job.LastError, job.ScheduledAt, job.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync job")
	}

	return nil
}

// GetPendingJobs claims due pending jobs, oldest first. Must run inside a
// transaction so the row locks hold until the jobs are updated.
func (r *PostgreSQLJobRepository) GetPendingJobs(ctx context.Context, now time.Time, limit int) ([]*syncDomain.SyncJob, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + jobColumns + ` FROM sync_jobs
			  WHERE status = $1 AND scheduled_at <= $2
			  ORDER BY scheduled_at ASC
			  LIMIT $3
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, syncDomain.JobStatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending sync jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []*syncDomain.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync job")
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync jobs")
	}

	return jobs, nil
}

// Update updates a sync job.
func (r *PostgreSQLJobRepository) Update(ctx context.Context, job *syncDomain.SyncJob) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sync_jobs
			  SET status = $1, retries = $2, last_error = $3, scheduled_at = $4,
			      processed_at = $5, updated_at = NOW()
			  WHERE id = $6`

	_, err := querier.ExecContext(ctx, query, job.Status, job.Retries, job.LastError,
		job.ScheduledAt, job.ProcessedAt, job.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update sync job")
	}

	return nil
}

// ListByConnection retrieves the most recent jobs for a connection.
func (r *PostgreSQLJobRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncJob, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + jobColumns + ` FROM sync_jobs
			  WHERE connection_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, connectionID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []*syncDomain.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync job")
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync jobs")
	}

	return jobs, nil
}
