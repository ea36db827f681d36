package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

// MySQLLogRepository implements the append-only sync log for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLLogRepository struct {
	db *sql.DB
}

// NewMySQLLogRepository creates a new MySQLLogRepository.
func NewMySQLLogRepository(db *sql.DB) *MySQLLogRepository {
	return &MySQLLogRepository{db: db}
}

// Create inserts a new sync log entry.
func (m *MySQLLogRepository) Create(ctx context.Context, log *syncDomain.SyncLog) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sync_logs (` + logColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := log.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal log id")
	}
	connectionID, err := log.ConnectionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal connection id")
	}
	jobID, err := log.JobID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	_, err = querier.ExecContext(ctx, query, id, connectionID, jobID, log.Status,
		log.SyncedCount, log.Error, log.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync log")
	}

	return nil
}

// ListByConnection retrieves the most recent log entries for a connection.
func (m *MySQLLogRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + logColumns + ` FROM sync_logs
			  WHERE connection_id = ?
			  ORDER BY created_at DESC
			  LIMIT ?`

	connID, err := connectionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal connection id")
	}

	rows, err := querier.QueryContext(ctx, query, connID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync logs")
	}
	defer rows.Close() //nolint:errcheck

	var logs []*syncDomain.SyncLog
	for rows.Next() {
		var (
			log     syncDomain.SyncLog
			logID   []byte
			connRaw []byte
			jobID   []byte
		)
		err := rows.Scan(&logID, &connRaw, &jobID, &log.Status, &log.SyncedCount,
			&log.Error, &log.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync log")
		}
		if err := log.ID.UnmarshalBinary(logID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal log id")
		}
		if err := log.ConnectionID.UnmarshalBinary(connRaw); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal connection id")
		}
		if err := log.JobID.UnmarshalBinary(jobID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal job id")
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync logs")
	}

	return logs, nil
}
