package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/envsync/internal/audit"
	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
	databaseMocks "github.com/allisson/envsync/internal/database/mocks"
	apperrors "github.com/allisson/envsync/internal/errors"
	rotationMocks "github.com/allisson/envsync/internal/rotation/usecase/mocks"
	"github.com/allisson/envsync/internal/sync/adapter"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
	syncMocks "github.com/allisson/envsync/internal/sync/usecase/mocks"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// recordingSink captures audit events for assertions.
type recordingSink struct {
	events []audit.Event
}

func (r *recordingSink) Record(_ context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

var errPushFailed = errors.New("platform rejected the push")

// fakeVariableReader returns a fixed decrypted snapshot.
type fakeVariableReader struct {
	variables []*variableDomain.Variable
	err       error
}

func (f *fakeVariableReader) ListDecrypted(context.Context, uuid.UUID) ([]*variableDomain.Variable, error) {
	return f.variables, f.err
}

type syncFixture struct {
	txManager      *databaseMocks.MockTxManager
	connectionRepo *syncMocks.MockConnectionRepository
	jobRepo        *syncMocks.MockJobRepository
	logRepo        *syncMocks.MockLogRepository
	marker         *syncMocks.MockProcessingMarker
	variableReader *fakeVariableReader
	adapter        *syncMocks.MockAdapter
	resolver       *syncMocks.MockAdapterResolver
	notifier       *rotationMocks.MockNotifier
	auditSink      *recordingSink
	envelope       cryptoService.Envelope
	useCase        SyncUseCase
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	masterKey, err := cryptoDomain.NewMasterKey(key)
	require.NoError(t, err)

	f := &syncFixture{
		txManager:      &databaseMocks.MockTxManager{},
		connectionRepo: &syncMocks.MockConnectionRepository{},
		jobRepo:        &syncMocks.MockJobRepository{},
		logRepo:        &syncMocks.MockLogRepository{},
		marker:         &syncMocks.MockProcessingMarker{},
		variableReader: &fakeVariableReader{},
		adapter:        &syncMocks.MockAdapter{},
		resolver:       &syncMocks.MockAdapterResolver{},
		notifier:       &rotationMocks.MockNotifier{},
		auditSink:      &recordingSink{},
		envelope:       cryptoService.NewEnvelope(cryptoService.NewAEADManager(), masterKey, cryptoDomain.AESGCM),
	}
	f.useCase = NewSyncUseCase(
		f.txManager,
		f.connectionRepo,
		f.jobRepo,
		f.logRepo,
		f.marker,
		f.variableReader,
		f.envelope,
		f.resolver,
		f.notifier,
		f.auditSink,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultConfig(),
	)
	return f
}

// newConnection returns a connection whose credentials bundle opens with the
// fixture's envelope.
func (f *syncFixture) newConnection(t *testing.T, creds map[string]string) *syncDomain.PlatformConnection {
	t.Helper()

	now := time.Now().UTC()
	connection := &syncDomain.PlatformConnection{
		ID:             uuid.Must(uuid.NewV7()),
		ProjectID:      uuid.Must(uuid.NewV7()),
		EnvironmentID:  uuid.Must(uuid.NewV7()),
		Platform:       syncDomain.PlatformHeroku,
		TargetResource: "my-app",
		Status:         syncDomain.ConnectionConnected,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	plaintext, err := json.Marshal(creds)
	require.NoError(t, err)
	bundle, err := f.envelope.Seal(plaintext, connection.EncryptionContext())
	require.NoError(t, err)
	connection.CredentialsBundle = bundle

	return connection
}

func (f *syncFixture) newJob(connection *syncDomain.PlatformConnection) *syncDomain.SyncJob {
	now := time.Now().UTC()
	return &syncDomain.SyncJob{
		ID:            uuid.Must(uuid.NewV7()),
		ConnectionID:  connection.ID,
		EnvironmentID: connection.EnvironmentID,
		Trigger:       "variable_updated",
		Status:        syncDomain.JobStatusPending,
		ScheduledAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSyncUseCase_CreateConnection(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	creds := map[string]string{"api_key": "heroku-key"}

	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)
	f.adapter.On("Authenticate", ctx, mock.Anything).Return(nil)
	f.adapter.On("TestConnection", ctx, mock.Anything, "my-app").Return(nil)

	var created *syncDomain.PlatformConnection
	f.connectionRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*syncDomain.PlatformConnection)
	}).Return(nil)

	connection, err := f.useCase.CreateConnection(ctx, ConnectionInput{
		ProjectID:      uuid.Must(uuid.NewV7()),
		EnvironmentID:  uuid.Must(uuid.NewV7()),
		Platform:       syncDomain.PlatformHeroku,
		Credentials:    creds,
		TargetResource: "my-app",
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, syncDomain.ConnectionConnected, created.Status)

	// The stored bundle opens back to the original credentials.
	plaintext, err := f.envelope.Open(created.CredentialsBundle, created.EncryptionContext())
	require.NoError(t, err)
	var opened map[string]string
	require.NoError(t, json.Unmarshal(plaintext, &opened))
	assert.Equal(t, creds, opened)

	require.Len(t, f.auditSink.events, 1)
	assert.Equal(t, "connection_created", f.auditSink.events[0].Action)

	assert.Same(t, created, connection)
}

func TestSyncUseCase_CreateConnection_AuthenticationFailed(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.resolver.On("Resolve", syncDomain.PlatformVercel).Return(f.adapter, nil)
	f.adapter.On("Authenticate", ctx, mock.Anything).Return(syncDomain.ErrAuthenticationFailed)

	connection, err := f.useCase.CreateConnection(ctx, ConnectionInput{
		ProjectID:      uuid.Must(uuid.NewV7()),
		EnvironmentID:  uuid.Must(uuid.NewV7()),
		Platform:       syncDomain.PlatformVercel,
		Credentials:    map[string]string{"token": "bad"},
		TargetResource: "my-project",
	})
	assert.Nil(t, connection)
	assert.ErrorIs(t, err, syncDomain.ErrAuthenticationFailed)
	f.connectionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSyncUseCase_CreateConnection_MissingCredentials(t *testing.T) {
	f := newSyncFixture(t)

	connection, err := f.useCase.CreateConnection(context.Background(), ConnectionInput{
		ProjectID:      uuid.Must(uuid.NewV7()),
		EnvironmentID:  uuid.Must(uuid.NewV7()),
		Platform:       syncDomain.PlatformHeroku,
		TargetResource: "my-app",
	})
	assert.Nil(t, connection)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSyncUseCase_EnqueueForEnvironment(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	environmentID := uuid.Must(uuid.NewV7())

	first := f.newConnection(t, map[string]string{"api_key": "k1"})
	second := f.newConnection(t, map[string]string{"token": "k2"})
	first.EnvironmentID = environmentID
	second.EnvironmentID = environmentID

	f.connectionRepo.On("ListByEnvironment", ctx, environmentID).
		Return([]*syncDomain.PlatformConnection{first, second}, nil)

	var jobs []*syncDomain.SyncJob
	f.jobRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		jobs = append(jobs, args.Get(1).(*syncDomain.SyncJob))
	}).Return(nil)

	require.NoError(t, f.useCase.EnqueueForEnvironment(ctx, environmentID, "secret_rotated"))

	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ConnectionID)
	assert.Equal(t, second.ID, jobs[1].ConnectionID)
	for _, job := range jobs {
		assert.Equal(t, syncDomain.JobStatusPending, job.Status)
		assert.Equal(t, "secret_rotated", job.Trigger)
	}
}

func TestSyncUseCase_EnqueueForEnvironment_NoConnections(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	environmentID := uuid.Must(uuid.NewV7())

	f.connectionRepo.On("ListByEnvironment", ctx, environmentID).
		Return([]*syncDomain.PlatformConnection{}, nil)

	require.NoError(t, f.useCase.EnqueueForEnvironment(ctx, environmentID, "variable_updated"))
	f.jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSyncUseCase_ProcessJobs(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	creds := map[string]string{"api_key": "heroku-key"}
	connection := f.newConnection(t, creds)
	job := f.newJob(connection)

	f.variableReader.variables = []*variableDomain.Variable{
		{Key: "DATABASE_URL", Value: "postgres://localhost"},
		{Key: "API_KEY", Secret: true, Plaintext: []byte("s3cr3t")},
	}

	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
	f.jobRepo.On("GetPendingJobs", ctx, mock.Anything, 10).Return([]*syncDomain.SyncJob{job}, nil)
	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.marker.On("Acquire", ctx, connection.ID).Return(true, nil)
	f.marker.On("Release", ctx, connection.ID).Return(nil)
	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)

	var pushed []syncDomain.EnvVar
	f.adapter.On("PushVariables", ctx, mock.Anything, "my-app", mock.Anything).
		Run(func(args mock.Arguments) {
			pushed = args.Get(3).([]syncDomain.EnvVar)
			opened := args.Get(1).(adapter.Credentials)
			assert.Equal(t, adapter.Credentials(creds), opened)
		}).
		Return(&syncDomain.SyncResult{Success: true, SyncedCount: 2}, nil)

	f.jobRepo.On("Update", ctx, mock.Anything).Return(nil)
	f.connectionRepo.On("UpdateStatus", ctx, mock.Anything).Return(nil)
	f.logRepo.On("Create", ctx, mock.Anything).Return(nil)

	processed, err := f.useCase.ProcessJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// The snapshot carries decrypted secret values.
	require.Len(t, pushed, 2)
	assert.Equal(t, syncDomain.EnvVar{Key: "DATABASE_URL", Value: "postgres://localhost"}, pushed[0])
	assert.Equal(t, syncDomain.EnvVar{Key: "API_KEY", Value: "s3cr3t"}, pushed[1])

	assert.Equal(t, syncDomain.JobStatusProcessed, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.Equal(t, syncDomain.ConnectionConnected, connection.Status)
	require.NotNil(t, connection.LastSyncAt)

	f.logRepo.AssertCalled(t, "Create", ctx, mock.MatchedBy(func(log *syncDomain.SyncLog) bool {
		return log.Status == syncDomain.LogStatusSuccess && log.SyncedCount == 2
	}))
}

func TestSyncUseCase_ProcessJobs_PartialFailure(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	connection := f.newConnection(t, map[string]string{"token": "t"})
	job := f.newJob(connection)
	before := time.Now().UTC()

	f.variableReader.variables = []*variableDomain.Variable{
		{Key: "VAR_ONE", Value: "1"},
		{Key: "VAR_TWO", Value: "2"},
		{Key: "VAR_THREE", Value: "3"},
	}

	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
	f.jobRepo.On("GetPendingJobs", ctx, mock.Anything, 10).Return([]*syncDomain.SyncJob{job}, nil)
	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.marker.On("Acquire", ctx, connection.ID).Return(true, nil)
	f.marker.On("Release", ctx, connection.ID).Return(nil)
	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)

	f.adapter.On("PushVariables", ctx, mock.Anything, "my-app", mock.Anything).
		Return(&syncDomain.SyncResult{
			Success:     false,
			SyncedCount: 2,
			Errors:      []syncDomain.SyncError{{VariableKey: "VAR_TWO", Message: "invalid value"}},
		}, nil)

	f.jobRepo.On("Update", ctx, mock.Anything).Return(nil)
	f.logRepo.On("Create", ctx, mock.Anything).Return(nil)

	processed, err := f.useCase.ProcessJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// The job stays pending with one retry spent and a 1s backoff.
	assert.Equal(t, syncDomain.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.Retries)
	require.NotNil(t, job.LastError)
	assert.Contains(t, *job.LastError, "VAR_TWO")
	assert.WithinDuration(t, before.Add(1*time.Second), job.ScheduledAt, time.Second)

	f.logRepo.AssertCalled(t, "Create", ctx, mock.MatchedBy(func(log *syncDomain.SyncLog) bool {
		return log.Status == syncDomain.LogStatusFailure && log.SyncedCount == 2
	}))
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncUseCase_ProcessJobs_BackoffDoubles(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	connection := f.newConnection(t, map[string]string{"token": "t"})
	job := f.newJob(connection)
	job.Retries = 2
	before := time.Now().UTC()

	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
	f.jobRepo.On("GetPendingJobs", ctx, mock.Anything, 10).Return([]*syncDomain.SyncJob{job}, nil)
	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.marker.On("Acquire", ctx, connection.ID).Return(true, nil)
	f.marker.On("Release", ctx, connection.ID).Return(nil)
	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)
	f.adapter.On("PushVariables", ctx, mock.Anything, "my-app", mock.Anything).
		Return(syncDomain.ErrorFor(errPushFailed), nil)
	f.jobRepo.On("Update", ctx, mock.Anything).Return(nil)
	f.logRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.useCase.ProcessJobs(ctx)
	require.NoError(t, err)

	// Third failure waits 4s.
	assert.Equal(t, 3, job.Retries)
	assert.WithinDuration(t, before.Add(4*time.Second), job.ScheduledAt, time.Second)
}

func TestSyncUseCase_ProcessJobs_FinalRetryWaitsSixteenSeconds(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	connection := f.newConnection(t, map[string]string{"token": "t"})
	job := f.newJob(connection)
	job.Retries = 4
	before := time.Now().UTC()

	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
	f.jobRepo.On("GetPendingJobs", ctx, mock.Anything, 10).Return([]*syncDomain.SyncJob{job}, nil)
	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.marker.On("Acquire", ctx, connection.ID).Return(true, nil)
	f.marker.On("Release", ctx, connection.ID).Return(nil)
	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)
	f.adapter.On("PushVariables", ctx, mock.Anything, "my-app", mock.Anything).
		Return(syncDomain.ErrorFor(errPushFailed), nil)
	f.jobRepo.On("Update", ctx, mock.Anything).Return(nil)
	f.logRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.useCase.ProcessJobs(ctx)
	require.NoError(t, err)

	// The fifth retry is still scheduled, capping the backoff at 16s.
	assert.Equal(t, syncDomain.JobStatusPending, job.Status)
	assert.Equal(t, 5, job.Retries)
	assert.WithinDuration(t, before.Add(16*time.Second), job.ScheduledAt, time.Second)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncUseCase_ProcessJobs_RetriesExhausted(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	connection := f.newConnection(t, map[string]string{"token": "t"})
	job := f.newJob(connection)
	job.Retries = 5

	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
	f.jobRepo.On("GetPendingJobs", ctx, mock.Anything, 10).Return([]*syncDomain.SyncJob{job}, nil)
	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.marker.On("Acquire", ctx, connection.ID).Return(true, nil)
	f.marker.On("Release", ctx, connection.ID).Return(nil)
	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)
	f.adapter.On("PushVariables", ctx, mock.Anything, "my-app", mock.Anything).
		Return(syncDomain.ErrorFor(errPushFailed), nil)
	f.jobRepo.On("Update", ctx, mock.Anything).Return(nil)
	f.connectionRepo.On("UpdateStatus", ctx, mock.Anything).Return(nil)
	f.logRepo.On("Create", ctx, mock.Anything).Return(nil)
	f.notifier.On("Notify", ctx, connection.ProjectID, "sync_failed", mock.Anything).Return(nil)

	_, err := f.useCase.ProcessJobs(ctx)
	require.NoError(t, err)

	assert.Equal(t, syncDomain.JobStatusFailed, job.Status)
	assert.Equal(t, syncDomain.ConnectionError, connection.Status)
	require.NotNil(t, connection.LastError)

	f.notifier.AssertCalled(t, "Notify", ctx, connection.ProjectID, "sync_failed", mock.Anything)

	found := false
	for _, event := range f.auditSink.events {
		if event.Action == "sync_failed" && event.Severity == audit.SeverityError {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSyncUseCase_ProcessJobs_ConnectionBusy(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	connection := f.newConnection(t, map[string]string{"token": "t"})
	job := f.newJob(connection)
	before := time.Now().UTC()

	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil)
	f.jobRepo.On("GetPendingJobs", ctx, mock.Anything, 10).Return([]*syncDomain.SyncJob{job}, nil)
	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.marker.On("Acquire", ctx, connection.ID).Return(false, nil)
	f.jobRepo.On("Update", ctx, mock.Anything).Return(nil)

	_, err := f.useCase.ProcessJobs(ctx)
	require.NoError(t, err)

	// The job is deferred without spending a retry.
	assert.Equal(t, syncDomain.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Retries)
	assert.WithinDuration(t, before.Add(5*time.Second), job.ScheduledAt, time.Second)
	f.adapter.AssertNotCalled(t, "PushVariables", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.marker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestSyncUseCase_TestConnection(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	creds := map[string]string{"api_key": "heroku-key"}
	connection := f.newConnection(t, creds)

	f.connectionRepo.On("GetByID", ctx, connection.ID).Return(connection, nil)
	f.resolver.On("Resolve", syncDomain.PlatformHeroku).Return(f.adapter, nil)
	f.adapter.On("TestConnection", ctx, mock.Anything, "my-app").
		Run(func(args mock.Arguments) {
			opened := args.Get(1).(adapter.Credentials)
			assert.Equal(t, adapter.Credentials(creds), opened)
		}).
		Return(nil)

	require.NoError(t, f.useCase.TestConnection(ctx, connection.ID))
}
