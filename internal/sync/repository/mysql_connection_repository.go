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

// MySQLConnectionRepository implements PlatformConnection persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLConnectionRepository struct {
	db *sql.DB
}

// NewMySQLConnectionRepository creates a new MySQLConnectionRepository.
func NewMySQLConnectionRepository(db *sql.DB) *MySQLConnectionRepository {
	return &MySQLConnectionRepository{db: db}
}

func scanMySQLConnection(row interface{ Scan(dest ...any) error }) (*syncDomain.PlatformConnection, error) {
	var (
		c             syncDomain.PlatformConnection
		id            []byte
		projectID     []byte
		environmentID []byte
		bundle        cryptoDomain.SealedBundle
	)

	err := row.Scan(
		&id,
		&projectID,
		&environmentID,
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

	if err := c.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal connection id")
	}
	if err := c.ProjectID.UnmarshalBinary(projectID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal project id")
	}
	if err := c.EnvironmentID.UnmarshalBinary(environmentID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal environment id")
	}

	c.CredentialsBundle = &bundle
	return &c, nil
}

// Create inserts a new platform connection.
func (m *MySQLConnectionRepository) Create(ctx context.Context, connection *syncDomain.PlatformConnection) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO platform_connections (` + connectionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := connection.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal connection id")
	}
	projectID, err := connection.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}
	environmentID, err := connection.EnvironmentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	bundle := connection.CredentialsBundle
	_, err = querier.ExecContext(ctx, query, id, projectID, environmentID,
		connection.Platform, connection.TargetResource, bundle.Ciphertext, bundle.Nonce,
		bundle.WrappedKey, bundle.KeyNonce, bundle.Algorithm, connection.Status,
		connection.LastError, connection.LastSyncAt, connection.CreatedAt, connection.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create platform connection")
	}

	return nil
}

// GetByID retrieves a platform connection by its id.
func (m *MySQLConnectionRepository) GetByID(ctx context.Context, connectionID uuid.UUID) (*syncDomain.PlatformConnection, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE id = ?`

	id, err := connectionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal connection id")
	}

	connection, err := scanMySQLConnection(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, syncDomain.ErrConnectionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get platform connection")
	}

	return connection, nil
}

// ListByEnvironment retrieves all connections targeting an environment.
func (m *MySQLConnectionRepository) ListByEnvironment(ctx context.Context, environmentID uuid.UUID) ([]*syncDomain.PlatformConnection, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + connectionColumns + ` FROM platform_connections
			  WHERE environment_id = ?
			  ORDER BY created_at ASC`

	envID, err := environmentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal environment id")
	}

	rows, err := querier.QueryContext(ctx, query, envID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list platform connections")
	}
	defer rows.Close() //nolint:errcheck

	var connections []*syncDomain.PlatformConnection
	for rows.Next() {
		connection, err := scanMySQLConnection(rows)
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
func (m *MySQLConnectionRepository) UpdateStatus(ctx context.Context, connection *syncDomain.PlatformConnection) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE platform_connections
			  SET status = ?, last_error = ?, last_sync_at = ?, updated_at = ?
			  WHERE id = ?`

	id, err := connection.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal connection id")
	}

	result, err := querier.ExecContext(ctx, query, connection.Status, connection.LastError,
		connection.LastSyncAt, connection.UpdatedAt, id)
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
func (m *MySQLConnectionRepository) Delete(ctx context.Context, connectionID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM platform_connections WHERE id = ?`

	id, err := connectionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal connection id")
	}

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
