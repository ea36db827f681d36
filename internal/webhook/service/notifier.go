// Package service implements webhook delivery: alert events are posted as
// JSON to every active subscriber of the project.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/envsync/internal/errors"
	webhookDomain "github.com/allisson/envsync/internal/webhook/domain"
)

// deliveryTimeout bounds one webhook POST. There are no retries; a missed
// delivery is logged and dropped.
const deliveryTimeout = 10 * time.Second

// SubscriberRepository resolves delivery targets per project and event type.
type SubscriberRepository interface {
	ListByProjectAndEvent(ctx context.Context, projectID uuid.UUID, eventType string) ([]*webhookDomain.Subscriber, error)
}

// Notifier posts alert events to webhook subscribers.
type Notifier struct {
	subscriberRepo SubscriberRepository
	client         *http.Client
	logger         *slog.Logger
}

// NewNotifier creates a new Notifier. A nil client gets the delivery timeout
// default.
func NewNotifier(subscriberRepo SubscriberRepository, client *http.Client, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	return &Notifier{
		subscriberRepo: subscriberRepo,
		client:         client,
		logger:         logger,
	}
}

// Notify delivers the event to every active subscriber. Delivery failures
// are logged, never returned; only a subscriber lookup failure is an error.
func (n *Notifier) Notify(ctx context.Context, projectID uuid.UUID, event string, data map[string]any) error {
	subscribers, err := n.subscriberRepo.ListByProjectAndEvent(ctx, projectID, event)
	if err != nil {
		return apperrors.Wrap(err, "failed to resolve webhook subscribers")
	}

	body, err := json.Marshal(webhookDomain.Payload{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode webhook payload")
	}

	for _, subscriber := range subscribers {
		if err := n.deliver(ctx, subscriber.URL, body); err != nil {
			n.logger.Warn("webhook delivery failed",
				"subscriber_id", subscriber.ID,
				"event", event,
				"error", err,
			)
		}
	}

	return nil
}

func (n *Notifier) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
