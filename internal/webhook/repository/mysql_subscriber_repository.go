package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	webhookDomain "github.com/allisson/envsync/internal/webhook/domain"
)

// MySQLSubscriberRepository implements Subscriber persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLSubscriberRepository struct {
	db *sql.DB
}

// NewMySQLSubscriberRepository creates a new MySQLSubscriberRepository.
func NewMySQLSubscriberRepository(db *sql.DB) *MySQLSubscriberRepository {
	return &MySQLSubscriberRepository{db: db}
}

// Create inserts a new subscriber.
func (m *MySQLSubscriberRepository) Create(ctx context.Context, subscriber *webhookDomain.Subscriber) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO webhook_subscribers (` + subscriberColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := subscriber.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal subscriber id")
	}
	projectID, err := subscriber.ProjectID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal project id")
	}

	_, err = querier.ExecContext(ctx, query, id, projectID, subscriber.EventType,
		subscriber.URL, subscriber.Active, subscriber.CreatedAt, subscriber.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create webhook subscriber")
	}

	return nil
}

// ListByProjectAndEvent retrieves the active subscribers of a project for an
// event type.
func (m *MySQLSubscriberRepository) ListByProjectAndEvent(
	ctx context.Context,
	projectID uuid.UUID,
	eventType string,
) ([]*webhookDomain.Subscriber, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + subscriberColumns + ` FROM webhook_subscribers
			  WHERE project_id = ? AND event_type = ? AND active = TRUE
			  ORDER BY created_at ASC`

	projID, err := projectID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal project id")
	}

	rows, err := querier.QueryContext(ctx, query, projID, eventType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list webhook subscribers")
	}
	defer rows.Close() //nolint:errcheck

	var subscribers []*webhookDomain.Subscriber
	for rows.Next() {
		var (
			subscriber webhookDomain.Subscriber
			id         []byte
			projectRaw []byte
		)
		err := rows.Scan(&id, &projectRaw, &subscriber.EventType, &subscriber.URL,
			&subscriber.Active, &subscriber.CreatedAt, &subscriber.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan webhook subscriber")
		}
		if err := subscriber.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal subscriber id")
		}
		if err := subscriber.ProjectID.UnmarshalBinary(projectRaw); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal project id")
		}
		subscribers = append(subscribers, &subscriber)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate webhook subscribers")
	}

	return subscribers, nil
}

// Delete removes a subscriber.
func (m *MySQLSubscriberRepository) Delete(ctx context.Context, subscriberID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM webhook_subscribers WHERE id = ?`

	id, err := subscriberID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal subscriber id")
	}

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
