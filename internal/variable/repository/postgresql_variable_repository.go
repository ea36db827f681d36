// Package repository implements data persistence for configuration variables.
// Repositories support both PostgreSQL and MySQL with soft deletion and
// append-only version history.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

const variableColumns = `id, project_id, environment_id, key, value, secret,
	ciphertext, nonce, wrapped_key, key_nonce, algorithm, version,
	rotation_enabled, rotation_interval_days, rotation_next_due_at, rotation_provider,
	created_at, updated_at, deleted_at`

// PostgreSQLVariableRepository implements Variable persistence for PostgreSQL databases.
type PostgreSQLVariableRepository struct {
	db *sql.DB
}

// NewPostgreSQLVariableRepository creates a new PostgreSQLVariableRepository.
func NewPostgreSQLVariableRepository(db *sql.DB) *PostgreSQLVariableRepository {
	return &PostgreSQLVariableRepository{db: db}
}

// scanVariable scans one variable row, reassembling the sealed bundle from
// its nullable columns.
func scanVariable(row interface{ Scan(dest ...any) error }) (*variableDomain.Variable, error) {
	var (
		v          variableDomain.Variable
		ciphertext []byte
		nonce      []byte
		wrappedKey []byte
		keyNonce   []byte
		algorithm  sql.NullString
	)

	err := row.Scan(
		&v.ID,
		&v.ProjectID,
		&v.EnvironmentID,
		&v.Key,
		&v.Value,
		&v.Secret,
		&ciphertext,
		&nonce,
		&wrappedKey,
		&keyNonce,
		&algorithm,
		&v.Version,
		&v.RotationEnabled,
		&v.RotationIntervalDays,
		&v.RotationNextDueAt,
		&v.RotationProvider,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if algorithm.Valid {
		v.Bundle = &cryptoDomain.SealedBundle{
			Ciphertext: ciphertext,
			Nonce:      nonce,
			WrappedKey: wrappedKey,
			KeyNonce:   keyNonce,
			Algorithm:  cryptoDomain.Algorithm(algorithm.String),
		}
	}

	return &v, nil
}

// bundleColumns flattens a sealed bundle into its nullable column values.
func bundleColumns(bundle *cryptoDomain.SealedBundle) (ciphertext, nonce, wrappedKey, keyNonce []byte, algorithm sql.NullString) {
	if bundle == nil {
		return nil, nil, nil, nil, sql.NullString{}
	}
	return bundle.Ciphertext, bundle.Nonce, bundle.WrappedKey, bundle.KeyNonce,
		sql.NullString{String: string(bundle.Algorithm), Valid: true}
}

// Create inserts a new variable into the PostgreSQL database.
func (p *PostgreSQLVariableRepository) Create(ctx context.Context, v *variableDomain.Variable) error {
	querier := database.GetTx(ctx, p.db)

	ciphertext, nonce, wrappedKey, keyNonce, algorithm := bundleColumns(v.Bundle)

	query := `INSERT INTO variables (id, project_id, environment_id, key, value, secret,
			  ciphertext, nonce, wrapped_key, key_nonce, algorithm, version,
			  rotation_enabled, rotation_interval_days, rotation_next_due_at, rotation_provider,
			  created_at, updated_at, deleted_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := querier.ExecContext(
		ctx,
		query,
		v.ID,
		v.ProjectID,
		v.EnvironmentID,
		v.Key,
		v.Value,
		v.Secret,
		ciphertext,
		nonce,
		wrappedKey,
		keyNonce,
		algorithm,
		v.Version,
		v.RotationEnabled,
		v.RotationIntervalDays,
		v.RotationNextDueAt,
		v.RotationProvider,
		v.CreatedAt,
		v.UpdatedAt,
		v.DeletedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create variable")
	}
	return nil
}

// Update replaces a variable's value, bundle and version in one statement.
// The write is an atomic row replacement: a failed update leaves the previous
// sealed value untouched.
func (p *PostgreSQLVariableRepository) Update(ctx context.Context, v *variableDomain.Variable) error {
	querier := database.GetTx(ctx, p.db)

	ciphertext, nonce, wrappedKey, keyNonce, algorithm := bundleColumns(v.Bundle)

	query := `UPDATE variables
			  SET value = $1, secret = $2, ciphertext = $3, nonce = $4, wrapped_key = $5,
			      key_nonce = $6, algorithm = $7, version = $8, updated_at = $9
			  WHERE id = $10 AND deleted_at IS NULL`

	result, err := querier.ExecContext(
		ctx,
		query,
		v.Value,
		v.Secret,
		ciphertext,
		nonce,
		wrappedKey,
		keyNonce,
		algorithm,
		v.Version,
		v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update variable")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return variableDomain.ErrVariableNotFound
	}
	return nil
}

// UpdateRotationPolicy updates only the rotation policy columns.
func (p *PostgreSQLVariableRepository) UpdateRotationPolicy(
	ctx context.Context,
	v *variableDomain.Variable,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE variables
			  SET rotation_enabled = $1, rotation_interval_days = $2,
			      rotation_next_due_at = $3, rotation_provider = $4
			  WHERE id = $5 AND deleted_at IS NULL`

	result, err := querier.ExecContext(
		ctx,
		query,
		v.RotationEnabled,
		v.RotationIntervalDays,
		v.RotationNextDueAt,
		v.RotationProvider,
		v.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation policy")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return variableDomain.ErrVariableNotFound
	}
	return nil
}

// GetByID retrieves a non-deleted variable by its id.
func (p *PostgreSQLVariableRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + variableColumns + `
			  FROM variables
			  WHERE id = $1 AND deleted_at IS NULL`

	v, err := scanVariable(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, variableDomain.ErrVariableNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get variable by id")
	}
	return v, nil
}

// GetByEnvironmentAndKey retrieves a non-deleted variable by environment and key.
func (p *PostgreSQLVariableRepository) GetByEnvironmentAndKey(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) (*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + variableColumns + `
			  FROM variables
			  WHERE environment_id = $1 AND key = $2 AND deleted_at IS NULL`

	v, err := scanVariable(querier.QueryRowContext(ctx, query, environmentID, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, variableDomain.ErrVariableNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get variable by environment and key")
	}
	return v, nil
}

// ListByEnvironment retrieves all non-deleted variables of an environment, ordered by key.
func (p *PostgreSQLVariableRepository) ListByEnvironment(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + variableColumns + `
			  FROM variables
			  WHERE environment_id = $1 AND deleted_at IS NULL
			  ORDER BY key ASC`

	rows, err := querier.QueryContext(ctx, query, environmentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list variables")
	}
	defer rows.Close() //nolint:errcheck

	var variables []*variableDomain.Variable
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan variable")
		}
		variables = append(variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list variables")
	}

	return variables, nil
}

// ListDueForRotation retrieves enabled secret variables whose next-due
// timestamp has passed, oldest due first.
func (p *PostgreSQLVariableRepository) ListDueForRotation(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + variableColumns + `
			  FROM variables
			  WHERE rotation_enabled = TRUE AND secret = TRUE AND deleted_at IS NULL
			    AND rotation_next_due_at <= $1
			  ORDER BY rotation_next_due_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due variables")
	}
	defer rows.Close() //nolint:errcheck

	var variables []*variableDomain.Variable
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan variable")
		}
		variables = append(variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list due variables")
	}

	return variables, nil
}

// Delete performs a soft delete on a variable by setting the DeletedAt timestamp.
func (p *PostgreSQLVariableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE variables
			  SET deleted_at = $1
			  WHERE id = $2 AND deleted_at IS NULL`

	result, err := querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete variable")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return variableDomain.ErrVariableNotFound
	}
	return nil
}
