// Package repository implements data persistence for platform connections,
// durable sync jobs and sync logs.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

const connectionColumns = `id, project_id, environment_id, platform, target_resource,
	credentials_ciphertext, credentials_nonce, credentials_wrapped_key, credentials_key_nonce, credentials_algorithm,
	status, last_error, last_sync_at, created_at, updated_at`

// PostgreSQLConnectionRepository implements PlatformConnection persistence for PostgreSQL.
type PostgreSQLConnectionRepository struct {
	db *sql.DB
}

// NewPostgreSQLConnectionRepository creates a new PostgreSQLConnectionRepository.
func NewPostgreSQLConnectionRepository(db *sql.DB) *PostgreSQLConnectionRepository {
	return &PostgreSQLConnectionRepository{db: db}
}

func scanConnection(row interface{ Scan(dest ...any) error }) (*syncDomain.PlatformConnection, error) {
	var (
		c      syncDomain.PlatformConnection
		bundle cryptoDomain.SealedBundle
	)

	err := row.Scan(
		&c.ID,
		&c.ProjectID,
		&c.EnvironmentID,
		&c.Platform,
		&c.TargetResource,
		&bundle.Ciphertext,
		&bundle.Nonce,
		&bundle.WrappedKey,
		&bundle.KeyNonce,
		&bundle.Algorithm,
		&c.Status,
		&c.LastError,
		&c.LastSyncAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CredentialsBundle = &bundle
	return &c, nil
}

// Create inserts a new platform connection.
func (r *PostgreSQLConnectionRepository) Create(ctx context.Context, connection *syncDomain.PlatformConnection) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO platform_connections (` + connectionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

	bundle := connection.CredentialsBundle
	_, err := querier.ExecContext(ctx, query,
		connection.ID, connection.ProjectID, connection.EnvironmentID, connection.Platform,
		connection.TargetResource, bundle.Ciphertext, bundle.Nonce, bundle.WrappedKey,
		bundle.KeyNonce, bundle.Algorithm, connection.Status, connection.LastError,
		connection.LastSyncAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create platform connection")
	}

	return nil
}

// GetByID retrieves a platform connection by its id.
func (r *PostgreSQLConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*syncDomain.PlatformConnection, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE id = $1`

	connection, err := scanConnection(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, syncDomain.ErrConnectionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get platform connection")
	}

	return connection, nil
}

// ListByEnvironment retrieves all connections targeting an environment.
func (r *PostgreSQLConnectionRepository) ListByEnvironment(ctx context.Context, environmentID uuid.UUID) ([]*syncDomain.PlatformConnection, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + connectionColumns + ` FROM platform_connections
			  WHERE environment_id = $1
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, environmentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list platform connections")
	}
	defer rows.Close() //nolint:errcheck

	var connections []*syncDomain.PlatformConnection
	for rows.Next() {
		connection, err := scanConnection(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan platform connection")
		}
		connections = append(connections, connection)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate platform connections")
	}

	return connections, nil
}

// UpdateStatus persists the connection health after a sync attempt.
func (r *PostgreSQLConnectionRepository) UpdateStatus(ctx context.Context, connection *syncDomain.PlatformConnection) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE platform_connections
			  SET status = $1, last_error = $2, last_sync_at = $3, updated_at = NOW()
			  WHERE id = $4`

	result, err := querier.ExecContext(ctx, query, connection.Status, connection.LastError,
		connection.LastSyncAt, connection.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update platform connection")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return syncDomain.ErrConnectionNotFound
	}

	return nil
}

// Delete removes a platform connection.
func (r *PostgreSQLConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM platform_connections WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete platform connection")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return syncDomain.ErrConnectionNotFound
	}

	return nil
}
