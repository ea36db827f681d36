package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// RunEnableRotation turns on scheduled rotation for a secret variable.
func RunEnableRotation(ctx context.Context, environmentID, key string, intervalDays int, provider string) error {
	envID, err := uuid.Parse(environmentID)
	if err != nil {
		return fmt.Errorf("invalid environment id: %w", err)
	}

	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.RotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation use case: %w", err)
	}

	if err := useCase.EnableRotation(ctx, envID, key, intervalDays, provider); err != nil {
		return fmt.Errorf("failed to enable rotation: %w", err)
	}

	logger.Info("rotation enabled",
		slog.String("environment_id", environmentID),
		slog.String("key", key),
		slog.Int("interval_days", intervalDays),
	)
	return nil
}

// RunDisableRotation clears the rotation policy of a variable.
func RunDisableRotation(ctx context.Context, environmentID, key string) error {
	envID, err := uuid.Parse(environmentID)
	if err != nil {
		return fmt.Errorf("invalid environment id: %w", err)
	}

	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.RotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation use case: %w", err)
	}

	if err := useCase.DisableRotation(ctx, envID, key); err != nil {
		return fmt.Errorf("failed to disable rotation: %w", err)
	}

	logger.Info("rotation disabled",
		slog.String("environment_id", environmentID),
		slog.String("key", key),
	)
	return nil
}

// RunRotate performs an on-demand rotation of one variable.
func RunRotate(ctx context.Context, environmentID, key, actor string) error {
	envID, err := uuid.Parse(environmentID)
	if err != nil {
		return fmt.Errorf("invalid environment id: %w", err)
	}

	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.RotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation use case: %w", err)
	}

	if err := useCase.Rotate(ctx, envID, key, actor); err != nil {
		return fmt.Errorf("failed to rotate variable: %w", err)
	}

	logger.Info("variable rotated",
		slog.String("environment_id", environmentID),
		slog.String("key", key),
	)
	return nil
}

// RunRotateDue rotates every variable whose next-due time has passed.
func RunRotateDue(ctx context.Context) error {
	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.RotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation use case: %w", err)
	}

	rotated, err := useCase.RotateDue(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate due variables: %w", err)
	}

	logger.Info("rotation scan completed", slog.Int("rotated", rotated))
	return nil
}

// RunProcessRetries re-runs rotations whose retry delay has elapsed.
func RunProcessRetries(ctx context.Context) error {
	container, logger := newContainer()
	defer closeContainer(container, logger)

	useCase, err := container.RotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation use case: %w", err)
	}

	processed, err := useCase.ProcessPendingRetries(ctx)
	if err != nil {
		return fmt.Errorf("failed to process pending retries: %w", err)
	}

	logger.Info("rotation retries processed", slog.Int("processed", processed))
	return nil
}
