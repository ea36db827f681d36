package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/envsync/internal/audit"
	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
	"github.com/allisson/envsync/internal/database"
	apperrors "github.com/allisson/envsync/internal/errors"
	appValidation "github.com/allisson/envsync/internal/validation"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

// variableUseCase implements the VariableUseCase interface.
type variableUseCase struct {
	txManager    database.TxManager
	variableRepo VariableRepository
	versionRepo  VersionRepository
	envelope     cryptoService.Envelope
	bundleCache  cryptoService.BundleCache
	cacheTTL     time.Duration
	syncQueue    SyncQueue
	auditSink    audit.Sink
}

// Validate checks the input fields.
func (i VariableInput) Validate() error {
	if i.ProjectID == uuid.Nil || i.EnvironmentID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "project id and environment id are required")
	}
	return appValidation.WrapValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.Key,
			validation.Required,
			appValidation.VariableKey,
			validation.Length(1, 255),
		),
		validation.Field(&i.Actor,
			validation.Required,
			appValidation.NotBlank,
		),
	))
}

// CreateOrUpdate creates a new variable or bumps an existing one to a new version.
func (u *variableUseCase) CreateOrUpdate(
	ctx context.Context,
	input VariableInput,
) (*variableDomain.Variable, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	existing, err := u.variableRepo.GetByEnvironmentAndKey(ctx, input.EnvironmentID, input.Key)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	var (
		result     *variableDomain.Variable
		changeType variableDomain.ChangeType
	)

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if existing == nil {
			changeType = variableDomain.ChangeTypeCreated
			v := &variableDomain.Variable{
				ID:            uuid.Must(uuid.NewV7()),
				ProjectID:     input.ProjectID,
				EnvironmentID: input.EnvironmentID,
				Key:           input.Key,
				Secret:        input.Secret,
				Version:       1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := u.applyValue(v, input.Value); err != nil {
				return err
			}
			if err := u.variableRepo.Create(txCtx, v); err != nil {
				return err
			}
			result = v
		} else {
			changeType = variableDomain.ChangeTypeUpdated
			existing.Secret = input.Secret
			existing.Version++
			existing.UpdatedAt = now
			if err := u.applyValue(existing, input.Value); err != nil {
				return err
			}
			if err := u.variableRepo.Update(txCtx, existing); err != nil {
				return err
			}
			result = existing
		}

		return u.versionRepo.Create(txCtx, newVersionRow(result, changeType, input.Actor, now))
	})
	if err != nil {
		return nil, err
	}

	u.afterChange(ctx, result, string(changeType), input.Actor)

	return result, nil
}

// applyValue seals the plaintext into the variable's bundle for secret
// variables, or stores it as-is for plain ones. A fresh data key is generated
// on every write.
func (u *variableUseCase) applyValue(v *variableDomain.Variable, value string) error {
	if !v.Secret {
		v.Value = value
		v.Bundle = nil
		return nil
	}

	bundle, err := u.envelope.Seal([]byte(value), v.EncryptionContext())
	if err != nil {
		return err
	}
	v.Value = ""
	v.Bundle = bundle
	return nil
}

// newVersionRow builds the append-only history row for a change.
func newVersionRow(
	v *variableDomain.Variable,
	changeType variableDomain.ChangeType,
	actor string,
	now time.Time,
) *variableDomain.VariableVersion {
	vv := &variableDomain.VariableVersion{
		ID:         uuid.Must(uuid.NewV7()),
		VariableID: v.ID,
		Version:    v.Version,
		ChangeType: changeType,
		Actor:      actor,
		CreatedAt:  now,
	}
	if changeType != variableDomain.ChangeTypeDeleted {
		vv.Value = v.Value
		vv.Bundle = v.Bundle
	}
	return vv
}

// afterChange runs post-commit side effects: cache invalidation, sync
// enqueue and audit. Failures here never fail the committed change.
func (u *variableUseCase) afterChange(ctx context.Context, v *variableDomain.Variable, action, actor string) {
	_ = u.bundleCache.Invalidate(ctx, v.ID.String()) //nolint:errcheck

	_ = u.syncQueue.EnqueueForEnvironment(ctx, v.EnvironmentID, "variable_"+action) //nolint:errcheck

	u.auditSink.Record(ctx, audit.Event{
		Action:     "variable_" + action,
		ResourceID: v.ID.String(),
		Actor:      actor,
		Metadata: map[string]any{
			"environment_id": v.EnvironmentID.String(),
			"key":            v.Key,
			"version":        v.Version,
			"secret":         v.Secret,
		},
		Severity: audit.SeverityInfo,
	})
}

// Get retrieves a variable and decrypts secret values.
func (u *variableUseCase) Get(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) (*variableDomain.Variable, error) {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return nil, err
	}

	if err := u.decryptVariable(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// decryptVariable opens a secret variable's bundle into the Plaintext field.
// The bundle cache is consulted first and refreshed best-effort; cache
// failures fall back to the stored bundle.
func (u *variableUseCase) decryptVariable(ctx context.Context, v *variableDomain.Variable) error {
	if !v.Secret {
		return nil
	}

	bundle, err := u.bundleCache.Get(ctx, v.ID.String())
	if err != nil {
		bundle = v.Bundle
		_ = u.bundleCache.Set(ctx, v.ID.String(), bundle, u.cacheTTL) //nolint:errcheck
	}

	plaintext, err := u.envelope.Open(bundle, v.EncryptionContext())
	if err != nil {
		return err
	}
	v.Plaintext = plaintext
	return nil
}

// List retrieves all variables of an environment without decrypting.
func (u *variableUseCase) List(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	return u.variableRepo.ListByEnvironment(ctx, environmentID)
}

// ListDecrypted retrieves all variables of an environment with secret values decrypted.
func (u *variableUseCase) ListDecrypted(
	ctx context.Context,
	environmentID uuid.UUID,
) ([]*variableDomain.Variable, error) {
	variables, err := u.variableRepo.ListByEnvironment(ctx, environmentID)
	if err != nil {
		return nil, err
	}

	for _, v := range variables {
		if err := u.decryptVariable(ctx, v); err != nil {
			return nil, err
		}
	}
	return variables, nil
}

// ListVersions retrieves the version history of a variable, newest first.
func (u *variableUseCase) ListVersions(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
) ([]*variableDomain.VariableVersion, error) {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return nil, err
	}
	return u.versionRepo.ListByVariable(ctx, v.ID)
}

// Delete soft-deletes a variable and appends a deletion version row.
func (u *variableUseCase) Delete(ctx context.Context, environmentID uuid.UUID, key, actor string) error {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.variableRepo.Delete(txCtx, v.ID); err != nil {
			return err
		}
		v.Version++
		return u.versionRepo.Create(txCtx, newVersionRow(v, variableDomain.ChangeTypeDeleted, actor, now))
	})
	if err != nil {
		return err
	}

	u.afterChange(ctx, v, string(variableDomain.ChangeTypeDeleted), actor)

	return nil
}

// Rollback restores the value of an earlier version by appending a new version.
func (u *variableUseCase) Rollback(
	ctx context.Context,
	environmentID uuid.UUID,
	key string,
	version uint,
	actor string,
) (*variableDomain.Variable, error) {
	v, err := u.variableRepo.GetByEnvironmentAndKey(ctx, environmentID, key)
	if err != nil {
		return nil, err
	}

	target, err := u.versionRepo.GetByVariableAndVersion(ctx, v.ID, version)
	if err != nil {
		return nil, err
	}

	// Restore the target value. Secrets are opened and resealed under a
	// fresh data key rather than re-pointing at the old bundle.
	if target.Bundle != nil {
		plaintext, err := u.envelope.Open(target.Bundle, v.EncryptionContext())
		if err != nil {
			return nil, err
		}
		v.Secret = true
		err = u.applyValue(v, string(plaintext))
		cryptoDomain.Zero(plaintext)
		if err != nil {
			return nil, err
		}
	} else {
		v.Secret = false
		if err := u.applyValue(v, target.Value); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	v.Version++
	v.UpdatedAt = now

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.variableRepo.Update(txCtx, v); err != nil {
			return err
		}
		return u.versionRepo.Create(txCtx, newVersionRow(v, variableDomain.ChangeTypeRollback, actor, now))
	})
	if err != nil {
		return nil, err
	}

	u.afterChange(ctx, v, string(variableDomain.ChangeTypeRollback), actor)

	return v, nil
}

// NewVariableUseCase creates a new variable use case instance with the provided dependencies.
func NewVariableUseCase(
	txManager database.TxManager,
	variableRepo VariableRepository,
	versionRepo VersionRepository,
	envelope cryptoService.Envelope,
	bundleCache cryptoService.BundleCache,
	cacheTTL time.Duration,
	syncQueue SyncQueue,
	auditSink audit.Sink,
) VariableUseCase {
	return &variableUseCase{
		txManager:    txManager,
		variableRepo: variableRepo,
		versionRepo:  versionRepo,
		envelope:     envelope,
		bundleCache:  bundleCache,
		cacheTTL:     cacheTTL,
		syncQueue:    syncQueue,
		auditSink:    auditSink,
	}
}
