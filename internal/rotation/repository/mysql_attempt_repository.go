package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
)

// MySQLAttemptRepository implements rotation attempt persistence for MySQL
// databases. UUIDs are stored as BINARY(16).
type MySQLAttemptRepository struct {
	db *sql.DB
}

// NewMySQLAttemptRepository creates a new MySQLAttemptRepository.
func NewMySQLAttemptRepository(db *sql.DB) *MySQLAttemptRepository {
	return &MySQLAttemptRepository{db: db}
}

// Create appends a rotation attempt record.
func (m *MySQLAttemptRepository) Create(ctx context.Context, attempt *rotationDomain.Attempt) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO rotation_attempts (id, variable_id, number, status, error, actor, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := attempt.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal attempt id")
	}
	variableID, err := attempt.VariableID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal variable id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		variableID,
		attempt.Number,
		attempt.Status,
		attempt.Error,
		attempt.Actor,
		attempt.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation attempt")
	}
	return nil
}

// ListByVariable retrieves the attempt history of a variable, newest first.
func (m *MySQLAttemptRepository) ListByVariable(
	ctx context.Context,
	variableID uuid.UUID,
	limit int,
) ([]*rotationDomain.Attempt, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, variable_id, number, status, error, actor, created_at
			  FROM rotation_attempts
			  WHERE variable_id = ?
			  ORDER BY created_at DESC
			  LIMIT ?`

	varID, err := variableID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal variable id")
	}

	rows, err := querier.QueryContext(ctx, query, varID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation attempts")
	}
	defer rows.Close() //nolint:errcheck

	var attempts []*rotationDomain.Attempt
	for rows.Next() {
		var (
			a        rotationDomain.Attempt
			id       []byte
			varIDRaw []byte
		)
		err := rows.Scan(&id, &varIDRaw, &a.Number, &a.Status, &a.Error, &a.Actor, &a.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation attempt")
		}
		if err := a.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal attempt id")
		}
		if err := a.VariableID.UnmarshalBinary(varIDRaw); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal variable id")
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation attempts")
	}

	return attempts, nil
}
