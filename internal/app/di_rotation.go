package app

import (
	"fmt"

	rotationRepository "github.com/allisson/envsync/internal/rotation/repository"
	rotationUsecase "github.com/allisson/envsync/internal/rotation/usecase"
	variableRepository "github.com/allisson/envsync/internal/variable/repository"
)

// RotationUseCase returns the rotation use case instance.
func (c *Container) RotationUseCase() (rotationUsecase.RotationUseCase, error) {
	c.rotationUseCaseInit.Do(func() {
		useCase, err := c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
			return
		}
		c.rotationUseCase = useCase
	})
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// initRotationUseCase creates the rotation use case with all its dependencies.
func (c *Container) initRotationUseCase() (rotationUsecase.RotationUseCase, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rotation use case: %w", err)
	}

	envelope, err := c.Envelope()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope for rotation use case: %w", err)
	}

	bundleCache, err := c.BundleCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get bundle cache for rotation use case: %w", err)
	}

	redisClient, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for rotation use case: %w", err)
	}

	notifier, err := c.Notifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for rotation use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
	}

	var variableRepo rotationUsecase.VariableRepository
	var versionRepo rotationUsecase.VersionRepository
	var attemptRepo rotationUsecase.AttemptRepository
	switch c.config.DBDriver {
	case "mysql":
		variableRepo = variableRepository.NewMySQLVariableRepository(db)
		versionRepo = variableRepository.NewMySQLVersionRepository(db)
		attemptRepo = rotationRepository.NewMySQLAttemptRepository(db)
	case "postgres":
		variableRepo = variableRepository.NewPostgreSQLVariableRepository(db)
		versionRepo = variableRepository.NewPostgreSQLVersionRepository(db)
		attemptRepo = rotationRepository.NewPostgreSQLAttemptRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	policy := rotationUsecase.Policy{
		MaxAttempts: c.config.RotationMaxAttempts,
		BackoffBase: c.config.RotationBackoffBase,
		ValueLength: c.config.RotationValueLength,
		BatchSize:   c.config.RotationBatchSize,
	}

	useCase := rotationUsecase.NewRotationUseCase(
		txManager,
		variableRepo,
		versionRepo,
		attemptRepo,
		rotationRepository.NewRedisRetryStore(redisClient),
		envelope,
		bundleCache,
		&lazySyncQueue{container: c},
		notifier,
		c.AuditSink(),
		c.Logger(),
		policy,
	)

	return rotationUsecase.NewRotationUseCaseWithMetrics(useCase, businessMetrics), nil
}
