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

// MySQLVersionRepository implements append-only version history persistence
// for MySQL databases.
type MySQLVersionRepository struct {
	db *sql.DB
}

// NewMySQLVersionRepository creates a new MySQLVersionRepository.
func NewMySQLVersionRepository(db *sql.DB) *MySQLVersionRepository {
	return &MySQLVersionRepository{db: db}
}

func scanMySQLVersion(row interface{ Scan(dest ...any) error }) (*variableDomain.VariableVersion, error) {
	var (
		vv         variableDomain.VariableVersion
		id         []byte
		variableID []byte
		ciphertext []byte
		nonce      []byte
		wrappedKey []byte
		keyNonce   []byte
		algorithm  sql.NullString
	)

	err := row.Scan(
		&id,
		&variableID,
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

	if err := vv.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal version id")
	}
	if err := vv.VariableID.UnmarshalBinary(variableID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal variable id")
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
func (m *MySQLVersionRepository) Create(ctx context.Context, vv *variableDomain.VariableVersion) error {
	querier := database.GetTx(ctx, m.db)

	ciphertext, nonce, wrappedKey, keyNonce, algorithm := bundleColumns(vv.Bundle)

	query := `INSERT INTO variable_versions (id, variable_id, version, change_type, value,
			  ciphertext, nonce, wrapped_key, key_nonce, algorithm, actor, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := vv.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal version id")
	}
	variableID, err := vv.VariableID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal variable id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		variableID,
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
func (m *MySQLVersionRepository) GetByVariableAndVersion(
	ctx context.Context,
	variableID uuid.UUID,
	version uint,
) (*variableDomain.VariableVersion, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + versionColumns + `
			  FROM variable_versions
			  WHERE variable_id = ? AND version = ?`

	varID, err := variableID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal variable id")
	}

	vv, err := scanMySQLVersion(querier.QueryRowContext(ctx, query, varID, version))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, variableDomain.ErrVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get variable version")
	}
	return vv, nil
}

// ListByVariable retrieves the full history of a variable, newest first.
func (m *MySQLVersionRepository) ListByVariable(
	ctx context.Context,
	variableID uuid.UUID,
) ([]*variableDomain.VariableVersion, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + versionColumns + `
			  FROM variable_versions
			  WHERE variable_id = ?
			  ORDER BY version DESC`

	varID, err := variableID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal variable id")
	}

	rows, err := querier.QueryContext(ctx, query, varID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list variable versions")
	}
	defer rows.Close() //nolint:errcheck

	var versions []*variableDomain.VariableVersion
	for rows.Next() {
		vv, err := scanMySQLVersion(rows)
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
