package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/allisson/envsync/internal/sync/adapter"
	syncRepository "github.com/allisson/envsync/internal/sync/repository"
	syncUsecase "github.com/allisson/envsync/internal/sync/usecase"
)

// lazySyncQueue resolves the sync use case on first enqueue. The variable and
// sync use cases depend on each other, so the queue side is bound late.
type lazySyncQueue struct {
	container *Container
}

func (q *lazySyncQueue) EnqueueForEnvironment(ctx context.Context, environmentID uuid.UUID, trigger string) error {
	useCase, err := q.container.SyncUseCase()
	if err != nil {
		return err
	}
	return useCase.EnqueueForEnvironment(ctx, environmentID, trigger)
}

// SyncUseCase returns the sync use case instance.
func (c *Container) SyncUseCase() (syncUsecase.SyncUseCase, error) {
	c.syncUseCaseInit.Do(func() {
		useCase, err := c.initSyncUseCase()
		if err != nil {
			c.initErrors["syncUseCase"] = err
			return
		}
		c.syncUseCase = useCase
	})
	if storedErr, exists := c.initErrors["syncUseCase"]; exists {
		return nil, storedErr
	}
	return c.syncUseCase, nil
}

// Dispatcher returns the sync job dispatcher instance.
func (c *Container) Dispatcher() (*syncUsecase.Dispatcher, error) {
	c.dispatcherInit.Do(func() {
		dispatcher, err := c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
			return
		}
		c.dispatcher = dispatcher
	})
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// initSyncUseCase creates the sync use case with all its dependencies.
func (c *Container) initSyncUseCase() (syncUsecase.SyncUseCase, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for sync use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for sync use case: %w", err)
	}

	envelope, err := c.Envelope()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope for sync use case: %w", err)
	}

	redisClient, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for sync use case: %w", err)
	}

	variableUseCase, err := c.VariableUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable use case for sync use case: %w", err)
	}

	notifier, err := c.Notifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for sync use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for sync use case: %w", err)
	}

	var connectionRepo syncUsecase.ConnectionRepository
	var jobRepo syncUsecase.JobRepository
	var logRepo syncUsecase.LogRepository
	switch c.config.DBDriver {
	case "mysql":
		connectionRepo = syncRepository.NewMySQLConnectionRepository(db)
		jobRepo = syncRepository.NewMySQLJobRepository(db)
		logRepo = syncRepository.NewMySQLLogRepository(db)
	case "postgres":
		connectionRepo = syncRepository.NewPostgreSQLConnectionRepository(db)
		jobRepo = syncRepository.NewPostgreSQLJobRepository(db)
		logRepo = syncRepository.NewPostgreSQLLogRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	useCaseConfig := syncUsecase.DefaultConfig()
	useCaseConfig.BatchSize = c.config.SyncBatchSize
	useCaseConfig.MaxRetries = c.config.SyncMaxRetries
	useCaseConfig.RetryBackoffBase = c.config.SyncBackoffBase

	useCase := syncUsecase.NewSyncUseCase(
		txManager,
		connectionRepo,
		jobRepo,
		logRepo,
		syncRepository.NewRedisProcessingMarker(redisClient),
		variableUseCase,
		envelope,
		adapter.NewResolver(adapter.Options{}),
		notifier,
		c.AuditSink(),
		c.Logger(),
		useCaseConfig,
	)

	return syncUsecase.NewSyncUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initDispatcher creates the sync job dispatcher.
func (c *Container) initDispatcher() (*syncUsecase.Dispatcher, error) {
	useCase, err := c.SyncUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync use case for dispatcher: %w", err)
	}

	dispatcherConfig := syncUsecase.DefaultDispatcherConfig()
	dispatcherConfig.Workers = c.config.SyncWorkers
	dispatcherConfig.PollInterval = c.config.SyncPollInterval

	return syncUsecase.NewDispatcher(useCase, c.Logger(), dispatcherConfig), nil
}
