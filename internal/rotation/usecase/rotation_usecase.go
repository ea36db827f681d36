package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/envsync/internal/audit"
	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	rotationDomain "github.com/allisson/envsync/internal/rotation/domain"
	rotationService "github.com/allisson/envsync/internal/rotation/service"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// Policy holds the bounded-retry rotation policy.
type Policy struct {
	// MaxAttempts is how many attempts run before escalation.
	MaxAttempts int
	// BackoffBase is the delay after the first failed attempt; it doubles
	// per attempt (base, 2x, 4x, ...).
	BackoffBase time.Duration
	// ValueLength is the length of generated replacement values.
	ValueLength int
	// BatchSize bounds how many due variables one scan processes.
	BatchSize int
}

// rotationUseCase implements the RotationUseCase interface.
type rotationUseCase struct {
	txManager    database.TxManager
	variableRepo VariableRepository
	versionRepo  VersionRepository
	attemptRepo  AttemptRepository
	retryStore   RetryStore
	envelope     cryptoService.Envelope
	bundleCache  cryptoService.BundleCache
	syncQueue    SyncQueue
	notifier     Notifier
	auditSink    audit.Sink
	logger       *slog.Logger
	policy       Policy
}

func intervalDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// EnableRotation turns on scheduled rotation for a secret variable.
func (u *rotationUseCase) EnableRotation(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	intervalDays int,
	provider string,
) error {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return err
	}
	if !v.Secret {
		return variableDomain.ErrNotSecret
	}
	if intervalDays < 1 {
		return rotationDomain.ErrInvalidInterval
	}
	if _, err := rotationService.NewValueSource(provider, u.policy.ValueLength); err != nil {
		return err
	}

	nextDue := time.Now().UTC().Add(intervalDuration(intervalDays))
	v.RotationEnabled = true
	v.RotationIntervalDays = intervalDays
	v.RotationNextDueAt = &nextDue
	v.RotationProvider = provider

	if err := u.variableRepo.UpdateRotationPolicy(ctx, v); err != nil {
		return err
	}

	u.auditSink.Record(ctx, audit.Event{
		Action:     "rotation_enabled",
		ResourceID: v.ID.String(),
		Actor:      "user",
		Metadata: map[string]any{
			"key":           v.Key,
			"interval_days": intervalDays,
			"provider":      provider,
		},
		Severity: audit.SeverityInfo,
	})
	return nil
}

// DisableRotation clears the rotation policy and any pending retry.
func (u *rotationUseCase) DisableRotation(ctx context.Context, environmentID uuid.UUID, key string) error {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return err
	}
	if !v.RotationEnabled {
		return rotationDomain.ErrRotationNotEnabled
	}

	v.RotationEnabled = false
	v.RotationIntervalDays = 0
	v.RotationNextDueAt = nil
	v.RotationProvider = ""

	if err := u.variableRepo.UpdateRotationPolicy(ctx, v); err != nil {
		return err
	}

	_ = u.retryStore.Remove(ctx, v.ID) //nolint:errcheck

	u.auditSink.Record(ctx, audit.Event{
		Action:     "rotation_disabled",
		ResourceID: v.ID.String(),
		Actor:      "user",
		Metadata:   map[string]any{"key": v.Key},
		Severity:   audit.SeverityInfo,
	})
	return nil
}

// UpdateInterval changes the rotation interval. The next due time is computed
// from the variable's last update so shortening an interval can make a
// long-idle secret due immediately.
func (u *rotationUseCase) UpdateInterval(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	intervalDays int,
) error {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return err
	}
	if !v.RotationEnabled {
		return rotationDomain.ErrRotationNotEnabled
	}
	if intervalDays < 1 {
		return rotationDomain.ErrInvalidInterval
	}

	nextDue := v.UpdatedAt.Add(intervalDuration(intervalDays))
	v.RotationIntervalDays = intervalDays
	v.RotationNextDueAt = &nextDue

	if err := u.variableRepo.UpdateRotationPolicy(ctx, v); err != nil {
		return err
	}

	u.auditSink.Record(ctx, audit.Event{
		Action:     "rotation_interval_updated",
		ResourceID: v.ID.String(),
		Actor:      "user",
		Metadata:   map[string]any{"key": v.Key, "interval_days": intervalDays},
		Severity:   audit.SeverityInfo,
	})
	return nil
}

// Rotate performs an on-demand rotation of one variable.
func (u *rotationUseCase) Rotate(ctx context.Context, environmentID uuid.UUID, key, actor string) error {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return err
	}
	if !v.Secret {
		return variableDomain.ErrNotSecret
	}

	if err := u.executeRotation(ctx, v, 1, actor); err != nil {
		u.handleFailure(ctx, v, 1, actor, err)
		return err
	}
	return nil
}

// bulkRotationWorkers bounds concurrent rotations in one due scan.
const bulkRotationWorkers = 4

// RotateDue rotates every due variable with a bounded worker pool. Each
// variable rotates in its own transaction and a failure feeds the failure
// handler without aborting the rest of the batch.
func (u *rotationUseCase) RotateDue(ctx context.Context) (int, error) {
	due, err := u.variableRepo.ListDueForRotation(ctx, time.Now().UTC(), u.policy.BatchSize)
	if err != nil {
		return 0, err
	}

	var rotated atomic.Int64
	var g errgroup.Group
	g.SetLimit(bulkRotationWorkers)
	for _, v := range due {
		g.Go(func() error {
			if err := u.executeRotation(ctx, v, 1, "rotation"); err != nil {
				u.handleFailure(ctx, v, 1, "rotation", err)
				return nil
			}
			rotated.Add(1)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck

	return int(rotated.Load()), nil
}

// ProcessPendingRetries re-runs rotations whose retry delay has elapsed.
// A renewed failure feeds back into the failure handler with an incremented
// attempt count, so attempts strictly increase until exhaustion.
func (u *rotationUseCase) ProcessPendingRetries(ctx context.Context) (int, error) {
	retries, err := u.retryStore.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	rotated := 0
	for _, retry := range retries {
		v, err := u.variableRepo.GetByID(ctx, retry.VariableID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				_ = u.retryStore.Remove(ctx, retry.VariableID) //nolint:errcheck
				continue
			}
			return rotated, err
		}
		if !v.RotationEnabled {
			_ = u.retryStore.Remove(ctx, retry.VariableID) //nolint:errcheck
			continue
		}

		if err := u.executeRotation(ctx, v, retry.Attempt, "rotation"); err != nil {
			u.handleFailure(ctx, v, retry.Attempt, "rotation", err)
			continue
		}
		rotated++
	}
	return rotated, nil
}

// ListAttempts returns the attempt history of a variable, newest first.
func (u *rotationUseCase) ListAttempts(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	limit int,
) ([]*rotationDomain.Attempt, error) {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return nil, err
	}
	return u.attemptRepo.ListByVariable(ctx, v.ID, limit)
}

// executeRotation runs one rotation attempt end to end: fetch the current
// value, obtain a replacement, seal and persist it as a new version, advance
// the schedule and trigger sync. The write is transactional, so a failure at
// any step leaves the prior sealed value active.
func (u *rotationUseCase) executeRotation(
	ctx context.Context,
	v *variableDomain.Variable,
	attempt int,
	actor string,
) error {
	enc := v.EncryptionContext()

	var current []byte
	if v.Bundle != nil {
		plaintext, err := u.envelope.Open(v.Bundle, enc)
		if err != nil {
			return err
		}
		current = plaintext
	}
	defer cryptoDomain.Zero(current)

	source, err := rotationService.NewValueSource(v.RotationProvider, u.policy.ValueLength)
	if err != nil {
		return err
	}
	newValue, err := source.RotateSecret(ctx, v.Key, string(current))
	if err != nil {
		return err
	}

	bundle, err := u.envelope.Seal([]byte(newValue), enc)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	v.Bundle = bundle
	v.Value = ""
	v.Version++
	v.UpdatedAt = now
	if v.RotationEnabled {
		nextDue := now.Add(intervalDuration(v.RotationIntervalDays))
		v.RotationNextDueAt = &nextDue
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.variableRepo.Update(txCtx, v); err != nil {
			return err
		}
		if err := u.variableRepo.UpdateRotationPolicy(txCtx, v); err != nil {
			return err
		}
		if err := u.versionRepo.Create(txCtx, &variableDomain.VariableVersion{
			ID:         uuid.Must(uuid.NewV7()),
			VariableID: v.ID,
			Version:    v.Version,
			ChangeType: variableDomain.ChangeTypeUpdated,
			Bundle:     bundle,
			Actor:      actor,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		return u.attemptRepo.Create(txCtx, &rotationDomain.Attempt{
			ID:         uuid.Must(uuid.NewV7()),
			VariableID: v.ID,
			Number:     attempt,
			Status:     rotationDomain.AttemptSucceeded,
			Actor:      actor,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	_ = u.bundleCache.Invalidate(ctx, v.ID.String())                              //nolint:errcheck
	_ = u.retryStore.Remove(ctx, v.ID)                                            //nolint:errcheck
	_ = u.syncQueue.EnqueueForEnvironment(ctx, v.EnvironmentID, "secret_rotated") //nolint:errcheck

	u.auditSink.Record(ctx, audit.Event{
		Action:     "secret_rotated",
		ResourceID: v.ID.String(),
		Actor:      actor,
		Metadata: map[string]any{
			"key":     v.Key,
			"version": v.Version,
			"attempt": attempt,
		},
		Severity: audit.SeverityInfo,
	})
	return nil
}

// handleFailure records a failed attempt and either schedules the next retry
// with doubled delay or, on the exhausting attempt, escalates with an alert.
func (u *rotationUseCase) handleFailure(
	ctx context.Context,
	v *variableDomain.Variable,
	attempt int,
	actor string,
	cause error,
) {
	now := time.Now().UTC()

	if err := u.attemptRepo.Create(ctx, &rotationDomain.Attempt{
		ID:         uuid.Must(uuid.NewV7()),
		VariableID: v.ID,
		Number:     attempt,
		Status:     rotationDomain.AttemptFailed,
		Error:      cause.Error(),
		Actor:      actor,
		CreatedAt:  now,
	}); err != nil {
		u.logger.Error("failed to record rotation attempt",
			slog.String("variable_id", v.ID.String()),
			slog.Any("error", err),
		)
	}

	if attempt >= u.policy.MaxAttempts {
		u.logger.Error("rotation attempts exhausted",
			slog.String("severity", "critical"),
			slog.String("variable_id", v.ID.String()),
			slog.String("key", v.Key),
			slog.Int("attempt", attempt),
			slog.Any("error", cause),
		)

		u.auditSink.Record(ctx, audit.Event{
			Action:     "rotation_failed",
			ResourceID: v.ID.String(),
			Actor:      actor,
			Metadata: map[string]any{
				"key":     v.Key,
				"attempt": attempt,
				"error":   cause.Error(),
			},
			Severity: audit.SeverityError,
		})

		if err := u.notifier.Notify(ctx, v.ProjectID, "rotation_failed", map[string]any{
			"variable_id": v.ID.String(),
			"key":         v.Key,
			"attempts":    attempt,
			"error":       cause.Error(),
		}); err != nil {
			u.logger.Error("failed to deliver rotation failure alert",
				slog.String("variable_id", v.ID.String()),
				slog.Any("error", err),
			)
		}

		_ = u.retryStore.Remove(ctx, v.ID) //nolint:errcheck
		return
	}

	delay := u.policy.BackoffBase << (attempt - 1)
	retry := rotationDomain.PendingRetry{
		VariableID:  v.ID,
		Attempt:     attempt + 1,
		ScheduledAt: now.Add(delay),
	}
	if err := u.retryStore.Schedule(ctx, retry); err != nil {
		u.logger.Error("failed to schedule rotation retry",
			slog.String("variable_id", v.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	u.logger.Warn("rotation attempt failed, retry scheduled",
		slog.String("variable_id", v.ID.String()),
		slog.String("key", v.Key),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.Any("error", cause),
	)

	u.auditSink.Record(ctx, audit.Event{
		Action:     "rotation_retry_scheduled",
		ResourceID: v.ID.String(),
		Actor:      actor,
		Metadata: map[string]any{
			"key":     v.Key,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   cause.Error(),
		},
		Severity: audit.SeverityWarning,
	})
}

// NewRotationUseCase creates a new rotation use case instance with the provided dependencies.
func NewRotationUseCase(
	txManager database.TxManager,
	variableRepo VariableRepository,
	versionRepo VersionRepository,
	attemptRepo AttemptRepository,
	retryStore RetryStore,
	envelope cryptoService.Envelope,
	bundleCache cryptoService.BundleCache,
	syncQueue SyncQueue,
	notifier Notifier,
	auditSink audit.Sink,
	logger *slog.Logger,
	policy Policy,
) RotationUseCase {
	return &rotationUseCase{
		txManager:    txManager,
		variableRepo: variableRepo,
		versionRepo:  versionRepo,
		attemptRepo:  attemptRepo,
		retryStore:   retryStore,
		envelope:     envelope,
		bundleCache:  bundleCache,
		syncQueue:    syncQueue,
		notifier:     notifier,
		auditSink:    auditSink,
		logger:       logger,
		policy:       policy,
	}
}
