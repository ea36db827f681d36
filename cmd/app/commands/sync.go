package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	syncDomain "github.com/allisson/envsync/internal/sync/domain"
	syncUsecase "github.com/allisson/envsync/internal/sync/usecase"
)

// RunCreateConnection verifies platform credentials and stores a new connection.
// The credentials argument is a JSON object, e.g. {"api_key":"..."} for heroku
// or {"token":"..."} for vercel.
func RunCreateConnection(
	ctx context.Context,
	projectID, environmentID, platform, targetResource, credentialsJSON string,
) error {
	projID, err := uuid.Parse(projectID)
	if err != nil {
		return fmt.Errorf("invalid project id: %w", err)
	}
	envID, err := uuid.Parse(environmentID)
	if err != nil {
		return fmt.Errorf("invalid environment id: %w", err)
	}

	var credentials map[string]string
	if err := json.Unmarshal([]byte(credentialsJSON), &credentials); err != nil {
		return fmt.Errorf("invalid credentials JSON: %w", err)
	}

	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.SyncUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize sync use case: %w", err)
	}

	connection, err := useCase.CreateConnection(ctx, syncUsecase.ConnectionInput{
		ProjectID:      projID,
		EnvironmentID:  envID,
		Platform:       syncDomain.PlatformType(platform),
		Credentials:    credentials,
		TargetResource: targetResource,
	})
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}

	logger.Info("connection created",
		slog.String("connection_id", connection.ID.String()),
		slog.String("platform", platform),
		slog.String("target_resource", targetResource),
	)
	return nil
}

// RunTestConnection verifies the stored credentials still reach the target resource.
func RunTestConnection(ctx context.Context, connectionID string) error {
	connID, err := uuid.Parse(connectionID)
	if err != nil {
		return fmt.Errorf("invalid connection id: %w", err)
	}

	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.SyncUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize sync use case: %w", err)
	}

	if err := useCase.TestConnection(ctx, connID); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	logger.Info("connection test succeeded", slog.String("connection_id", connectionID))
	return nil
}

// RunSyncEnvironment enqueues a sync job for every connection of an environment.
func RunSyncEnvironment(ctx context.Context, environmentID string) error {
	envID, err := uuid.Parse(environmentID)
	if err != nil {
		return fmt.Errorf("invalid environment id: %w", err)
	}

	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.SyncUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize sync use case: %w", err)
	}

	if err := useCase.EnqueueForEnvironment(ctx, envID, "manual"); err != nil {
		return fmt.Errorf("failed to enqueue sync jobs: %w", err)
	}

	logger.Info("sync jobs enqueued", slog.String("environment_id", environmentID))
	return nil
}

// RunProcessJobs claims and processes one batch of due sync jobs.
func RunProcessJobs(ctx context.Context) error {
	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.SyncUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize sync use case: %w", err)
	}

	processed, err := useCase.ProcessJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to process sync jobs: %w", err)
	}

	logger.Info("sync jobs processed", slog.Int("processed", processed))
	return nil
}
