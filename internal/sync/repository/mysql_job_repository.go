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

// MySQLJobRepository implements SyncJob persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLJobRepository struct {
	db *sql.DB
}

// NewMySQLJobRepository creates a new MySQLJobRepository.
func NewMySQLJobRepository(db *sql.DB) *MySQLJobRepository {
	return &MySQLJobRepository{db: db}
}

func scanMySQLJob(row interface{ Scan(dest ...any) error }) (*syncDomain.SyncJob, error) {
	var (
		job           syncDomain.SyncJob
		id            []byte
		connectionID  []byte
		environmentID []byte
	)

	err := row.Scan(
		&id,
		&connectionID,
		&environmentID,
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

	if err := job.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal job id")
	}
	if err := job.ConnectionID.UnmarshalBinary(connectionID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal connection id")
	}
	if err := job.EnvironmentID.UnmarshalBinary(environmentID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal environment id")
	}

	return &job, nil
}

// Create inserts a new sync job.
func (m *MySQLJobRepository) Create(ctx context.Context, job *syncDomain.SyncJob) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sync_jobs (` + jobColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := job.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}
	connectionID, err := job.ConnectionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal connection id")
	}
	environmentID, err := job.EnvironmentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	_, err = querier.ExecContext(ctx, query, id, connectionID, environmentID, job.Trigger,
		job.Status, job.Retries, job.LastError, job.ScheduledAt, job.ProcessedAt,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync job")
	}

	return nil
}

// GetPendingJobs claims due pending jobs, oldest first. Must run inside a
// transaction so the row locks hold until the jobs are updated.
func (m *MySQLJobRepository) GetPendingJobs(ctx context.Context, now time.Time, limit int) ([]*syncDomain.SyncJob, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + jobColumns + ` FROM sync_jobs
			  WHERE status = ? AND scheduled_at <= ?
			  ORDER BY scheduled_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, syncDomain.JobStatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending sync jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []*syncDomain.SyncJob
	for rows.Next() {
		job, err := scanMySQLJob(rows)
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
func (m *MySQLJobRepository) Update(ctx context.Context, job *syncDomain.SyncJob) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sync_jobs
			  SET status = ?, retries = ?, last_error = ?, scheduled_at = ?,
			      processed_at = ?, updated_at = ?
			  WHERE id = ?`

	id, err := job.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	_, err = querier.ExecContext(ctx, query, job.Status, job.Retries, job.LastError,
		job.ScheduledAt, job.ProcessedAt, job.UpdatedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update sync job")
	}

	return nil
}

// ListByConnection retrieves the most recent jobs for a connection.
func (m *MySQLJobRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncJob, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + jobColumns + ` FROM sync_jobs
			  WHERE connection_id = ?
			  ORDER BY created_at DESC
			  LIMIT ?`

	connID, err := connectionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal connection id")
	}

	rows, err := querier.QueryContext(ctx, query, connID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []*syncDomain.SyncJob
	for rows.Next() {
		job, err := scanMySQLJob(rows)
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
