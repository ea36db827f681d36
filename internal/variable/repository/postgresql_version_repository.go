package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

const versionColumns = `id, variable_id, version, change_type, value,
	ciphertext, nonce, wrapped_key, key_nonce, algorithm, actor, created_at`

// PostgreSQLVersionRepository implements append-only version history persistence
// for PostgreSQL databases. Rows are never updated or deleted.
type PostgreSQLVersionRepository struct {
	db *sql.DB
}

// NewPostgreSQLVersionRepository creates a new PostgreSQLVersionRepository.
func NewPostgreSQLVersionRepository(db *sql.DB) *PostgreSQLVersionRepository {
	return &PostgreSQLVersionRepository{db: db}
}

func scanVersion(row interface{ Scan(dest ...any) error }) (*variableDomain.VariableVersion, error) {
	var (
		vv         variableDomain.VariableVersion
		ciphertext []byte
		nonce      []byte
		wrappedKey []byte
		keyNonce   []byte
		algorithm  sql.NullString
	)

	err := row.Scan(
		&vv.ID,
		&vv.VariableID,
		&vv.Version,
		&vv.ChangeType,
		&vv.Value,
		&ciphertext,
		&nonce,
		&wrappedKey,
		&keyNonce,
		&algorithm,
		&vv.Actor,
		&vv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if algorithm.Valid {
		vv.Bundle = &cryptoDomain.SealedBundle{
			Ciphertext: ciphertext,
			Nonce:      nonce,
			WrappedKey: wrappedKey,
			KeyNonce:   keyNonce,
			Algorithm:  cryptoDomain.Algorithm(algorithm.String),
		}
	}

	return &vv, nil
}

// Create appends a new version record.
func (p *PostgreSQLVersionRepository) Create(ctx context.Context, vv *variableDomain.VariableVersion) error {
	querier := database.GetTx(ctx, p.db)

	ciphertext, nonce, wrappedKey, keyNonce, algorithm := bundleColumns(vv.Bundle)

	query := `INSERT INTO variable_versions (id, variable_id, version, change_type, value,
			  ciphertext, nonce, wrapped_key, key_nonce, algorithm, actor, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		vv.ID,
		vv.VariableID,
		vv.Version,
		vv.ChangeType,
		vv.Value,
		ciphertext,
		nonce,
		wrappedKey,
		keyNonce,
		algorithm,
		vv.Actor,
		vv.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create variable version")
	}
	return nil
}

// GetByVariableAndVersion retrieves one version record of a variable.
func (p *PostgreSQLVersionRepository) GetByVariableAndVersion(
	ctx context.Context,
	variableID uuid.UUID,
	version uint,
) (*variableDomain.VariableVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + versionColumns + `
			  FROM variable_versions
			  WHERE variable_id = $1 AND version = $2`

	vv, err := scanVersion(querier.QueryRowContext(ctx, query, variableID, version))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, variableDomain.ErrVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get variable version")
	}
	return vv, nil
}

// ListByVariable retrieves the full history of a variable, newest first.
func (p *PostgreSQLVersionRepository) ListByVariable(
	ctx context.Context,
	variableID uuid.UUID,
) ([]*variableDomain.VariableVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + versionColumns + `
			  FROM variable_versions
			  WHERE variable_id = $1
			  ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, variableID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list variable versions")
	}
	defer rows.Close() //nolint:errcheck

	var versions []*variableDomain.VariableVersion
	for rows.Next() {
		vv, err := scanVersion(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan variable version")
		}
		versions = append(versions, vv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list variable versions")
	}

	return versions, nil
}
