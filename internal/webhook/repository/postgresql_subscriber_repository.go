// Package repository implements webhook subscriber persistence.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	webhookDomain "github.com/allisson/envsync/internal/webhook/domain"
)

const subscriberColumns = `id, project_id, event_type, url, active, created_at, updated_at`

// PostgreSQLSubscriberRepository implements Subscriber persistence for PostgreSQL.
type PostgreSQLSubscriberRepository struct {
	db *sql.DB
}

// NewPostgreSQLSubscriberRepository creates a new PostgreSQLSubscriberRepository.
func NewPostgreSQLSubscriberRepository(db *sql.DB) *PostgreSQLSubscriberRepository {
	return &PostgreSQLSubscriberRepository{db: db}
}

// Create inserts a new subscriber.
func (r *PostgreSQLSubscriberRepository) Create(ctx context.Context, subscriber *webhookDomain.Subscriber) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO webhook_subscribers (` + subscriberColumns + `)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, subscriber.ID, subscriber.ProjectID,
		subscriber.EventType, subscriber.URL, subscriber.Active)
	if err != nil {
		return apperrors.Wrap(err, "failed to create webhook subscriber")
	}

	return nil
}

// ListByProjectAndEvent retrieves the active subscribers of a project for an
// event type.
func (r *PostgreSQLSubscriberRepository) ListByProjectAndEvent(
	ctx context.Context,
	projectID uuid.UUID,
	eventType string,
) ([]*webhookDomain.Subscriber, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + subscriberColumns + ` FROM webhook_subscribers
			  WHERE project_id = $1 AND event_type = $2 AND active = TRUE
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, projectID, eventType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list webhook subscribers")
	}
	defer rows.Close() //nolint:errcheck

	var subscribers []*webhookDomain.Subscriber
	for rows.Next() {
		var subscriber webhookDomain.Subscriber
		err := rows.Scan(&subscriber.ID, &subscriber.ProjectID, &subscriber.EventType,
			&subscriber.URL, &subscriber.Active, &subscriber.CreatedAt, &subscriber.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan webhook subscriber")
		}
		subscribers = append(subscribers, &subscriber)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate webhook subscribers")
	}

	return subscribers, nil
}

// Delete removes a subscriber.
func (r *PostgreSQLSubscriberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM webhook_subscribers WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete webhook subscriber")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return webhookDomain.ErrSubscriberNotFound
	}

	return nil
}
