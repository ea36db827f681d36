// Package repository implements persistence for rotation attempt records and
// the pending-retry store.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
)

// PostgreSQLAttemptRepository implements rotation attempt persistence for
// PostgreSQL databases. Records are append-only.
type PostgreSQLAttemptRepository struct {
	db *sql.DB
}

// NewPostgreSQLAttemptRepository creates a new PostgreSQLAttemptRepository.
func NewPostgreSQLAttemptRepository(db *sql.DB) *PostgreSQLAttemptRepository {
	return &PostgreSQLAttemptRepository{db: db}
}

// Create appends a rotation attempt record.
func (p *PostgreSQLAttemptRepository) Create(ctx context.Context, attempt *rotationDomain.Attempt) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_attempts (id, variable_id, number, status, error, actor, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		attempt.ID,
		attempt.VariableID,
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
func (p *PostgreSQLAttemptRepository) ListByVariable(
	ctx context.Context,
	variableID uuid.UUID,
	limit int,
) ([]*rotationDomain.Attempt, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, variable_id, number, status, error, actor, created_at
			  FROM rotation_attempts
			  WHERE variable_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, variableID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation attempts")
	}
	defer rows.Close() //nolint:errcheck

	var attempts []*rotationDomain.Attempt
	for rows.Next() {
		var a rotationDomain.Attempt
		err := rows.Scan(&a.ID, &a.VariableID, &a.Number, &a.Status, &a.Error, &a.Actor, &a.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation attempt")
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation attempts")
	}

	return attempts, nil
}
