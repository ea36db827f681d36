package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/audit"
	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

// Config tunes the sync job queue.
type Config struct {
	// BatchSize is the number of jobs claimed per ProcessJobs call.
	BatchSize int
	// MaxRetries is the retry budget per job before it is marked failed.
	MaxRetries int
	// RetryBackoffBase is the delay before the first retry; it doubles on
	// every further failure.
	RetryBackoffBase time.Duration
	// SkipDelay reschedules a job whose connection is already in flight.
	SkipDelay time.Duration
}

// DefaultConfig returns the production queue settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:        10,
		MaxRetries:       5,
		RetryBackoffBase: 1 * time.Second,
		SkipDelay:        5 * time.Second,
	}
}

type syncUseCase struct {
	txManager      database.TxManager
	connectionRepo ConnectionRepository
	jobRepo        JobRepository
	logRepo        LogRepository
	marker         ProcessingMarker
	variableReader VariableReader
	envelope       cryptoService.Envelope
	adapters       AdapterResolver
	notifier       Notifier
	auditSink      audit.Sink
	logger         *slog.Logger
	config         Config
}

// Validate checks the connection input fields.
func (i ConnectionInput) Validate() error {
	if i.ProjectID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "project id is required")
	}
	if i.EnvironmentID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "environment id is required")
	}
	if len(i.Credentials) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "credentials are required")
	}
	if i.TargetResource == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "target resource is required")
	}
	return nil
}

// CreateConnection verifies the credentials against the platform, seals them
// and stores the connection.
func (u *syncUseCase) CreateConnection(ctx context.Context, input ConnectionInput) (*syncDomain.PlatformConnection, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	platformAdapter, err := u.adapters.Resolve(input.Platform)
	if err != nil {
		return nil, err
	}

	if err := platformAdapter.Authenticate(ctx, input.Credentials); err != nil {
		return nil, err
	}
	if err := platformAdapter.TestConnection(ctx, input.Credentials, input.TargetResource); err != nil {
		return nil, apperrors.Wrap(err, "target resource is not reachable")
	}

	now := time.Now().UTC()
	connection := &syncDomain.PlatformConnection{
		ID:             uuid.Must(uuid.NewV7()),
		ProjectID:      input.ProjectID,
		EnvironmentID:  input.EnvironmentID,
		Platform:       input.Platform,
		TargetResource: input.TargetResource,
		Status:         syncDomain.ConnectionConnected,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	plaintext, err := json.Marshal(input.Credentials)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode credentials")
	}
	defer cryptoDomain.Zero(plaintext)

	bundle, err := u.envelope.Seal(plaintext, connection.EncryptionContext())
	if err != nil {
		return nil, err
	}
	connection.CredentialsBundle = bundle

	if err := u.connectionRepo.Create(ctx, connection); err != nil {
		return nil, err
	}

	u.auditSink.Record(ctx, audit.Event{
		Action:     "connection_created",
		ResourceID: connection.ID.String(),
		Metadata: map[string]any{
			"platform":        string(connection.Platform),
			"environment_id":  connection.EnvironmentID.String(),
			"target_resource": connection.TargetResource,
		},
		Severity: audit.SeverityInfo,
	})

	return connection, nil
}

// GetConnection retrieves a connection by id.
func (u *syncUseCase) GetConnection(ctx context.Context, id uuid.UUID) (*syncDomain.PlatformConnection, error) {
	return u.connectionRepo.GetByID(ctx, id)
}

// ListConnections retrieves all connections of an environment.
func (u *syncUseCase) ListConnections(ctx context.Context, environmentID uuid.UUID) ([]*syncDomain.PlatformConnection, error) {
	return u.connectionRepo.ListByEnvironment(ctx, environmentID)
}

// DeleteConnection removes a connection.
func (u *syncUseCase) DeleteConnection(ctx context.Context, id uuid.UUID) error {
	if err := u.connectionRepo.Delete(ctx, id); err != nil {
		return err
	}

	u.auditSink.Record(ctx, audit.Event{
		Action:     "connection_deleted",
		ResourceID: id.String(),
		Severity:   audit.SeverityInfo,
	})

	return nil
}

// TestConnection verifies the stored credentials still reach the target resource.
func (u *syncUseCase) TestConnection(ctx context.Context, id uuid.UUID) error {
	connection, err := u.connectionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	creds, err := u.openCredentials(connection)
	if err != nil {
		return err
	}

	platformAdapter, err := u.adapters.Resolve(connection.Platform)
	if err != nil {
		return err
	}

	return platformAdapter.TestConnection(ctx, creds, connection.TargetResource)
}

// EnqueueForEnvironment creates one pending job per connection of the
// environment. Environments without connections are a no-op.
func (u *syncUseCase) EnqueueForEnvironment(ctx context.Context, environmentID uuid.UUID, trigger string) error {
	connections, err := u.connectionRepo.ListByEnvironment(ctx, environmentID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, connection := range connections {
		job := &syncDomain.SyncJob{
			ID:            uuid.Must(uuid.NewV7()),
			ConnectionID:  connection.ID,
			EnvironmentID: environmentID,
			Trigger:       trigger,
			Status:        syncDomain.JobStatusPending,
			ScheduledAt:   now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := u.jobRepo.Create(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

// ProcessJobs claims a batch of due jobs under row locks and processes each
// one. The claim and the job updates share one transaction so a crashed
// worker releases its jobs back to the queue.
func (u *syncUseCase) ProcessJobs(ctx context.Context) (int, error) {
	processed := 0

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		jobs, err := u.jobRepo.GetPendingJobs(ctx, time.Now().UTC(), u.config.BatchSize)
		if err != nil {
			return err
		}

		for _, job := range jobs {
			u.processJob(ctx, job)
			processed++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return processed, nil
}

// ListLogs retrieves the most recent sync outcomes for a connection.
func (u *syncUseCase) ListLogs(ctx context.Context, connectionID uuid.UUID, limit int) ([]*syncDomain.SyncLog, error) {
	return u.logRepo.ListByConnection(ctx, connectionID, limit)
}

func (u *syncUseCase) processJob(ctx context.Context, job *syncDomain.SyncJob) {
	connection, err := u.connectionRepo.GetByID(ctx, job.ConnectionID)
	if err != nil {
		// The connection is gone; the job can never succeed.
		u.failJob(ctx, job, nil, err)
		return
	}

	acquired, err := u.marker.Acquire(ctx, connection.ID)
	if err != nil {
		u.handleFailure(ctx, job, connection, nil, err)
		return
	}
	if !acquired {
		// Another worker is pushing to this connection; come back later
		// without spending a retry.
		job.ScheduledAt = time.Now().UTC().Add(u.config.SkipDelay)
		job.UpdatedAt = time.Now().UTC()
		if err := u.jobRepo.Update(ctx, job); err != nil {
			u.logger.Error("failed to reschedule sync job",
				slog.String("job_id", job.ID.String()),
				slog.Any("error", err),
			)
		}
		return
	}
	defer func() {
		if err := u.marker.Release(ctx, connection.ID); err != nil {
			u.logger.Error("failed to release processing marker",
				slog.String("connection_id", connection.ID.String()),
				slog.Any("error", err),
			)
		}
	}()

	result, err := u.push(ctx, job, connection)
	if err != nil || !result.Success {
		u.handleFailure(ctx, job, connection, result, err)
		return
	}

	u.completeJob(ctx, job, connection, result)
}

// push decrypts the credentials and the variable snapshot and hands both to
// the platform adapter.
func (u *syncUseCase) push(ctx context.Context, job *syncDomain.SyncJob, connection *syncDomain.PlatformConnection) (*syncDomain.SyncResult, error) {
	creds, err := u.openCredentials(connection)
	if err != nil {
		return nil, err
	}

	platformAdapter, err := u.adapters.Resolve(connection.Platform)
	if err != nil {
		return nil, err
	}

	variables, err := u.variableReader.ListDecrypted(ctx, job.EnvironmentID)
	if err != nil {
		return nil, err
	}

	vars := make([]syncDomain.EnvVar, 0, len(variables))
	for _, v := range variables {
		value := v.Value
		if v.Secret {
			value = string(v.Plaintext)
		}
		vars = append(vars, syncDomain.EnvVar{Key: v.Key, Value: value})
	}
	defer func() {
		for _, v := range variables {
			cryptoDomain.Zero(v.Plaintext)
		}
	}()

	return platformAdapter.PushVariables(ctx, creds, connection.TargetResource, vars)
}

func (u *syncUseCase) openCredentials(connection *syncDomain.PlatformConnection) (map[string]string, error) {
	plaintext, err := u.envelope.Open(connection.CredentialsBundle, connection.EncryptionContext())
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	var creds map[string]string
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode credentials")
	}
	return creds, nil
}

func (u *syncUseCase) completeJob(ctx context.Context, job *syncDomain.SyncJob, connection *syncDomain.PlatformConnection, result *syncDomain.SyncResult) {
	now := time.Now().UTC()

	job.Status = syncDomain.JobStatusProcessed
	job.ProcessedAt = &now
	job.UpdatedAt = now
	if err := u.jobRepo.Update(ctx, job); err != nil {
		u.logger.Error("failed to update sync job",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	connection.Status = syncDomain.ConnectionConnected
	connection.LastError = nil
	connection.LastSyncAt = &now
	connection.UpdatedAt = now
	if err := u.connectionRepo.UpdateStatus(ctx, connection); err != nil {
		u.logger.Error("failed to update connection status",
			slog.String("connection_id", connection.ID.String()),
			slog.Any("error", err),
		)
	}

	u.writeLog(ctx, job, connection, syncDomain.LogStatusSuccess, result.SyncedCount, nil)

	u.logger.Info("environment synced",
		slog.String("connection_id", connection.ID.String()),
		slog.String("platform", string(connection.Platform)),
		slog.Int("synced_count", result.SyncedCount),
		slog.String("trigger", job.Trigger),
	)
}

// handleFailure spends one retry: the job is rescheduled with exponential
// backoff until the budget is exhausted, then marked failed for good.
func (u *syncUseCase) handleFailure(ctx context.Context, job *syncDomain.SyncJob, connection *syncDomain.PlatformConnection, result *syncDomain.SyncResult, cause error) {
	message := failureMessage(result, cause)

	if job.Retries >= u.config.MaxRetries {
		u.failJob(ctx, job, connection, fmt.Errorf("%s", message))
		return
	}
	job.Retries++

	now := time.Now().UTC()
	delay := u.config.RetryBackoffBase << (job.Retries - 1)
	job.ScheduledAt = now.Add(delay)
	job.LastError = &message
	job.UpdatedAt = now
	if err := u.jobRepo.Update(ctx, job); err != nil {
		u.logger.Error("failed to update sync job",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	if connection != nil {
		syncedCount := 0
		if result != nil {
			syncedCount = result.SyncedCount
		}
		u.writeLog(ctx, job, connection, syncDomain.LogStatusFailure, syncedCount, &message)
	}

	u.logger.Warn("sync failed, retry scheduled",
		slog.String("job_id", job.ID.String()),
		slog.String("connection_id", job.ConnectionID.String()),
		slog.Int("retries", job.Retries),
		slog.String("delay", delay.String()),
		slog.String("error", message),
	)
}

// failJob marks a job permanently failed, flips the connection to error and
// alerts the project subscribers.
func (u *syncUseCase) failJob(ctx context.Context, job *syncDomain.SyncJob, connection *syncDomain.PlatformConnection, cause error) {
	now := time.Now().UTC()
	message := cause.Error()

	job.Status = syncDomain.JobStatusFailed
	job.LastError = &message
	job.UpdatedAt = now
	if err := u.jobRepo.Update(ctx, job); err != nil {
		u.logger.Error("failed to update sync job",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err),
		)
	}

	if connection == nil {
		u.logger.Error("sync job failed",
			slog.String("job_id", job.ID.String()),
			slog.String("connection_id", job.ConnectionID.String()),
			slog.String("error", message),
		)
		return
	}

	connection.Status = syncDomain.ConnectionError
	connection.LastError = &message
	connection.UpdatedAt = now
	if err := u.connectionRepo.UpdateStatus(ctx, connection); err != nil {
		u.logger.Error("failed to update connection status",
			slog.String("connection_id", connection.ID.String()),
			slog.Any("error", err),
		)
	}

	u.writeLog(ctx, job, connection, syncDomain.LogStatusFailure, 0, &message)

	u.logger.Error("sync job failed permanently",
		slog.String("job_id", job.ID.String()),
		slog.String("connection_id", connection.ID.String()),
		slog.String("platform", string(connection.Platform)),
		slog.Int("retries", job.Retries),
		slog.String("error", message),
	)

	u.auditSink.Record(ctx, audit.Event{
		Action:     "sync_failed",
		ResourceID: connection.ID.String(),
		Metadata: map[string]any{
			"job_id":   job.ID.String(),
			"platform": string(connection.Platform),
			"retries":  job.Retries,
			"error":    message,
		},
		Severity: audit.SeverityError,
	})

	if err := u.notifier.Notify(ctx, connection.ProjectID, "sync_failed", map[string]any{
		"connectionId": connection.ID.String(),
		"platform":     string(connection.Platform),
		"error":        message,
	}); err != nil {
		u.logger.Error("failed to deliver sync alert",
			slog.String("connection_id", connection.ID.String()),
			slog.Any("error", err),
		)
	}
}

func (u *syncUseCase) writeLog(ctx context.Context, job *syncDomain.SyncJob, connection *syncDomain.PlatformConnection, status syncDomain.LogStatus, syncedCount int, message *string) {
	log := &syncDomain.SyncLog{
		ID:           uuid.Must(uuid.NewV7()),
		ConnectionID: connection.ID,
		JobID:        job.ID,
		Status:       status,
		SyncedCount:  syncedCount,
		Error:        message,
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.logRepo.Create(ctx, log); err != nil {
		u.logger.Error("failed to create sync log",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err),
		)
	}
}

func failureMessage(result *syncDomain.SyncResult, cause error) string {
	if cause != nil {
		return cause.Error()
	}
	if result != nil && len(result.Errors) > 0 {
		parts := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			parts = append(parts, e.VariableKey+": "+e.Message)
		}
		return strings.Join(parts, "; ")
	}
	return "sync failed"
}

// NewSyncUseCase creates a new sync use case instance with the provided dependencies.
func NewSyncUseCase(
	txManager database.TxManager,
	connectionRepo ConnectionRepository,
	jobRepo JobRepository,
	logRepo LogRepository,
	marker ProcessingMarker,
	variableReader VariableReader,
	envelope cryptoService.Envelope,
	adapters AdapterResolver,
	notifier Notifier,
	auditSink audit.Sink,
	logger *slog.Logger,
	config Config,
) SyncUseCase {
	return &syncUseCase{
		txManager:      txManager,
		connectionRepo: connectionRepo,
		jobRepo:        jobRepo,
		logRepo:        logRepo,
		marker:         marker,
		variableReader: variableReader,
		envelope:       envelope,
		adapters:       adapters,
		notifier:       notifier,
		auditSink:      auditSink,
		logger:         logger,
		config:         config,
	}
}
