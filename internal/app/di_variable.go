package app

import (
	"fmt"

	variableRepository "github.com/allisson/envsync/internal/variable/repository"
	variableUsecase "github.com/allisson/envsync/internal/variable/usecase"
)

// VariableUseCase returns the variable use case instance.
func (c *Container) VariableUseCase() (variableUsecase.VariableUseCase, error) {
	c.variableUseCaseInit.Do(func() {
		useCase, err := c.initVariableUseCase()
		if err != nil {
			c.initErrors["variableUseCase"] = err
			return
		}
		c.variableUseCase = useCase
	})
	if storedErr, exists := c.initErrors["variableUseCase"]; exists {
		return nil, storedErr
	}
	return c.variableUseCase, nil
}

// initVariableUseCase creates the variable use case with all its dependencies.
func (c *Container) initVariableUseCase() (variableUsecase.VariableUseCase, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for variable use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for variable use case: %w", err)
	}

	envelope, err := c.Envelope()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope for variable use case: %w", err)
	}

	bundleCache, err := c.BundleCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get bundle cache for variable use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for variable use case: %w", err)
	}

	var variableRepo variableUsecase.VariableRepository
	var versionRepo variableUsecase.VersionRepository
	switch c.config.DBDriver {
	case "mysql":
		variableRepo = variableRepository.NewMySQLVariableRepository(db)
		versionRepo = variableRepository.NewMySQLVersionRepository(db)
	case "postgres":
		variableRepo = variableRepository.NewPostgreSQLVariableRepository(db)
		versionRepo = variableRepository.NewPostgreSQLVersionRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	useCase := variableUsecase.NewVariableUseCase(
		txManager,
		variableRepo,
		versionRepo,
		envelope,
		bundleCache,
		c.config.BundleCacheTTL,
		&lazySyncQueue{container: c},
		c.AuditSink(),
	)

	return variableUsecase.NewVariableUseCaseWithMetrics(useCase, businessMetrics), nil
}
