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

// `key` is a reserved word in MySQL, hence the backticks.
const mysqlVariableColumns = "id, project_id, environment_id, `key`, value, secret, " +
	`ciphertext, nonce, wrapped_key, key_nonce, algorithm, version,
	rotation_enabled, rotation_interval_days, rotation_next_due_at, rotation_provider,
	created_at, updated_at, deleted_at`

// MySQLVariableRepository implements Variable persistence for MySQL databases.
// UUIDs are stored as BINARY(16).
type MySQLVariableRepository struct {
	db *sql.DB
}

// NewMySQLVariableRepository creates a new MySQLVariableRepository.
func NewMySQLVariableRepository(db *sql.DB) *MySQLVariableRepository {
	return &MySQLVariableRepository{db: db}
}

func scanMySQLVariable(row interface{ Scan(dest ...any) error }) (*variableDomain.Variable, error) {
	var (
		v             variableDomain.Variable
		id            []byte
		projectID     []byte
		environmentID []byte
		ciphertext    []byte
		nonce         []byte
		wrappedKey    []byte
		keyNonce      []byte
		algorithm     sql.NullString
	)

	err := row.Scan(
		&id,
		&projectID,
		&environmentID,
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

	if err := v.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal variable id")
	}
	if err := v.ProjectID.UnmarshalBinary(projectID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal project id")
	}
	if err := v.EnvironmentID.UnmarshalBinary(environmentID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal environment id")
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

// Create inserts a new variable into the MySQL database.
func (m *MySQLVariableRepository) Create(ctx context.Context, v *variableDomain.Variable) error {
	querier := database.GetTx(ctx, m.db)

	ciphertext, nonce, wrappedKey, keyNonce, algorithm := bundleColumns(v.Bundle)

	query := `INSERT INTO variables (` + mysqlVariableColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := v.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal variable id")
	}
	projectID, err := v.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}
	environmentID, err := v.EnvironmentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		projectID,
		environmentID,
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
func (m *MySQLVariableRepository) Update(ctx context.Context, v *variableDomain.Variable) error {
	querier := database.GetTx(ctx, m.db)

	ciphertext, nonce, wrappedKey, keyNonce, algorithm := bundleColumns(v.Bundle)

	query := `UPDATE variables
			  SET value = ?, secret = ?, ciphertext = ?, nonce = ?, wrapped_key = ?,
			      key_nonce = ?, algorithm = ?, version = ?, updated_at = ?
			  WHERE id = ? AND deleted_at IS NULL`

	id, err := v.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal variable id")
	}

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
		id,
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
func (m *MySQLVariableRepository) UpdateRotationPolicy(
	ctx context.Context,
	v *variableDomain.Variable,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE variables
			  SET rotation_enabled = ?, rotation_interval_days = ?,
			      rotation_next_due_at = ?, rotation_provider = ?
			  WHERE id = ? AND deleted_at IS NULL`

	id, err := v.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal variable id")
	}

	result, err := querier.ExecContext(
		ctx,
		query,
		v.RotationEnabled,
		v.RotationIntervalDays,
		v.RotationNextDueAt,
		v.RotationProvider,
		id,
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
func (m *MySQLVariableRepository) GetByID(
	ctx context.Context,
	variableID uuid.UUID,
) (*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVariableColumns + `
			  FROM variables
			  WHERE id = ? AND deleted_at IS NULL`

	id, err := variableID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal variable id")
	}

	v, err := scanMySQLVariable(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, variableDomain.ErrVariableNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get variable by id")
	}
	return v, nil
}

// GetByEnvironmentAndKey retrieves a non-deleted variable by environment and key.
func (m *MySQLVariableRepository) GetByEnvironmentAndKey(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) (*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVariableColumns + `
			  FROM variables
			  WHERE environment_id = ? AND ` + "`key`" + ` = ? AND deleted_at IS NULL`

	envID, err := environmentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal environment id")
	}

	v, err := scanMySQLVariable(querier.QueryRowContext(ctx, query, envID, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, variableDomain.ErrVariableNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get variable by environment and key")
	}
	return v, nil
}

// ListByEnvironment retrieves all non-deleted variables of an environment, ordered by key.
func (m *MySQLVariableRepository) ListByEnvironment(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVariableColumns + `
			  FROM variables
			  WHERE environment_id = ? AND deleted_at IS NULL
			  ORDER BY ` + "`key`" + ` ASC`

	envID, err := environmentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal environment id")
	}

	rows, err := querier.QueryContext(ctx, query, envID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list variables")
	}
	defer rows.Close() //nolint:errcheck

	var variables []*variableDomain.Variable
	for rows.Next() {
		v, err := scanMySQLVariable(rows)
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
func (m *MySQLVariableRepository) ListDueForRotation(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*variableDomain.Variable, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVariableColumns + `
			  FROM variables
			  WHERE rotation_enabled = TRUE AND secret = TRUE AND deleted_at IS NULL
			    AND rotation_next_due_at <= ?
			  ORDER BY rotation_next_due_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due variables")
	}
	defer rows.Close() //nolint:errcheck

	var variables []*variableDomain.Variable
	for rows.Next() {
		v, err := scanMySQLVariable(rows)
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
func (m *MySQLVariableRepository) Delete(ctx context.Context, variableID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE variables
			  SET deleted_at = ?
			  WHERE id = ? AND deleted_at IS NULL`

	id, err := variableID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal variable id")
	}

	result, err := querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete variable")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return variableDomain.ErrVariableNotFound
	}
	return nil
}
