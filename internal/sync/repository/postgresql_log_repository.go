package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

const logColumns = `id, connection_id, job_id, status, synced_count, error, created_at`

// PostgreSQLLogRepository implements the append-only sync log for PostgreSQL.
type PostgreSQLLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLLogRepository creates a new PostgreSQLLogRepository.
func NewPostgreSQLLogRepository(db *sql.DB) *PostgreSQLLogRepository {
	return &PostgreSQLLogRepository{db: db}
}

// Create inserts a new sync log entry.
func (r *PostgreSQLLogRepository) Create(ctx context.Context, log *syncDomain.SyncLog) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO sync_logs (` + logColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := querier.ExecContext(ctx, query, log.ID, log.ConnectionID, log.JobID,
		log.Status, log.SyncedCount, log.Error)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync log")
	}

	return nil
}

// ListByConnection retrieves the most recent log entries for a connection.
func (r *PostgreSQLLogRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncLog, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + logColumns + ` FROM sync_logs
			  WHERE connection_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, connectionID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync logs")
	}
	defer rows.Close() //nolint:errcheck

	var logs []*syncDomain.SyncLog
	for rows.Next() {
		var log syncDomain.SyncLog
		err := rows.Scan(&log.ID, &log.ConnectionID, &log.JobID, &log.Status,
			&log.SyncedCount, &log.Error, &log.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync log")
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync logs")
	}

	return logs, nil
}
