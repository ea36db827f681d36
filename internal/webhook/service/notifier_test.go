package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	webhookDomain "github.com/allisson/envsync/internal/webhook/domain"
)

// MockSubscriberRepository is a mock implementation of SubscriberRepository for testing.
type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) ListByProjectAndEvent(
	ctx context.Context,
	projectID uuid.UUID,
	eventType string,
) ([]*webhookDomain.Subscriber, error) {
	args := m.Called(ctx, projectID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhookDomain.Subscriber), args.Error(1)
}

func newSubscriber(projectID uuid.UUID, eventType, url string) *webhookDomain.Subscriber {
	return &webhookDomain.Subscriber{
		ID:        uuid.Must(uuid.NewV7()),
		ProjectID: projectID,
		EventType: eventType,
		URL:       url,
		Active:    true,
	}
}

func TestNotifier_Notify(t *testing.T) {
	var received webhookDomain.Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	projectID := uuid.Must(uuid.NewV7())
	repo := &MockSubscriberRepository{}
	repo.On("ListByProjectAndEvent", mock.Anything, projectID, "rotation_failed").
		Return([]*webhookDomain.Subscriber{newSubscriber(projectID, "rotation_failed", server.URL)}, nil)

	notifier := NewNotifier(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := notifier.Notify(context.Background(), projectID, "rotation_failed", map[string]any{
		"variableId": "var-1",
		"key":        "API_KEY",
	})
	require.NoError(t, err)

	assert.Equal(t, "rotation_failed", received.Event)
	assert.WithinDuration(t, time.Now().UTC(), received.Timestamp, time.Minute)
	assert.Equal(t, "API_KEY", received.Data["key"])
}

func TestNotifier_Notify_DeliveryFailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	projectID := uuid.Must(uuid.NewV7())
	repo := &MockSubscriberRepository{}
	repo.On("ListByProjectAndEvent", mock.Anything, projectID, "sync_failed").
		Return([]*webhookDomain.Subscriber{newSubscriber(projectID, "sync_failed", server.URL)}, nil)

	notifier := NewNotifier(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, notifier.Notify(context.Background(), projectID, "sync_failed", nil))
}

func TestNotifier_Notify_NoSubscribers(t *testing.T) {
	projectID := uuid.Must(uuid.NewV7())
	repo := &MockSubscriberRepository{}
	repo.On("ListByProjectAndEvent", mock.Anything, projectID, "rotation_failed").
		Return([]*webhookDomain.Subscriber{}, nil)

	notifier := NewNotifier(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, notifier.Notify(context.Background(), projectID, "rotation_failed", nil))
}

func TestNotifier_Notify_LookupFailure(t *testing.T) {
	projectID := uuid.Must(uuid.NewV7())
	repo := &MockSubscriberRepository{}
	repo.On("ListByProjectAndEvent", mock.Anything, projectID, "rotation_failed").
		Return(nil, errors.New("database unavailable"))

	notifier := NewNotifier(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Error(t, notifier.Notify(context.Background(), projectID, "rotation_failed", nil))
}
