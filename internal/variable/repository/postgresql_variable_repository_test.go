package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envsync/internal/crypto/domain"
	variableDomain "github.com/allisson/envsync/internal/variable/domain"
)

var variableRowColumns = []string{
	"id", "project_id", "environment_id", "key", "value", "secret",
	"ciphertext", "nonce", "wrapped_key", "key_nonce", "algorithm", "version",
	"rotation_enabled", "rotation_interval_days", "rotation_next_due_at", "rotation_provider",
	"created_at", "updated_at", "deleted_at",
}

func newTestVariable() *variableDomain.Variable {
	now := time.Now().UTC()
	return &variableDomain.Variable{
		ID:            uuid.Must(uuid.NewV7()),
		ProjectID:     uuid.Must(uuid.NewV7()),
		EnvironmentID: uuid.Must(uuid.NewV7()),
		Key:           "DATABASE_URL",
		Value:         "",
		Secret:        true,
		Bundle: &cryptoDomain.SealedBundle{
			Ciphertext: []byte("ciphertext"),
			Nonce:      []byte("nonce-123456"),
			WrappedKey: []byte("wrapped-key"),
			KeyNonce:   []byte("key-nonce-12"),
			Algorithm:  cryptoDomain.AESGCM,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func variableRow(v *variableDomain.Variable) *sqlmock.Rows {
	var (
		ciphertext, nonce, wrappedKey, keyNonce []byte
		algorithm                               any
	)
	if v.Bundle != nil {
		ciphertext = v.Bundle.Ciphertext
		nonce = v.Bundle.Nonce
		wrappedKey = v.Bundle.WrappedKey
		keyNonce = v.Bundle.KeyNonce
		algorithm = string(v.Bundle.Algorithm)
	}
	return sqlmock.NewRows(variableRowColumns).AddRow(
		v.ID, v.ProjectID, v.EnvironmentID, v.Key, v.Value, v.Secret,
		ciphertext, nonce, wrappedKey, keyNonce, algorithm, v.Version,
		v.RotationEnabled, v.RotationIntervalDays, v.RotationNextDueAt, v.RotationProvider,
		v.CreatedAt, v.UpdatedAt, v.DeletedAt,
	)
}

func TestNewPostgreSQLVariableRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLVariableRepository{}, repo)
}

func TestPostgreSQLVariableRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO variables")).
		WithArgs(
			v.ID, v.ProjectID, v.EnvironmentID, v.Key, v.Value, v.Secret,
			v.Bundle.Ciphertext, v.Bundle.Nonce, v.Bundle.WrappedKey, v.Bundle.KeyNonce,
			sql.NullString{String: string(v.Bundle.Algorithm), Valid: true}, v.Version,
			v.RotationEnabled, v.RotationIntervalDays, v.RotationNextDueAt, v.RotationProvider,
			v.CreatedAt, v.UpdatedAt, v.DeletedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), v)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLVariableRepository_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO variables")).
		WillReturnError(errors.New("unique constraint violation"))

	err = repo.Create(context.Background(), v)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create variable")
}

func TestPostgreSQLVariableRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()
	v.Version = 2

	mock.ExpectExec(regexp.QuoteMeta("UPDATE variables")).
		WithArgs(
			v.Value, v.Secret, v.Bundle.Ciphertext, v.Bundle.Nonce, v.Bundle.WrappedKey,
			v.Bundle.KeyNonce, sql.NullString{String: string(v.Bundle.Algorithm), Valid: true},
			v.Version, v.UpdatedAt, v.ID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Update(context.Background(), v)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLVariableRepository_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE variables")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), v)
	assert.ErrorIs(t, err, variableDomain.ErrVariableNotFound)
}

func TestPostgreSQLVariableRepository_UpdateRotationPolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()
	nextDue := time.Now().UTC().Add(30 * 24 * time.Hour)
	v.RotationEnabled = true
	v.RotationIntervalDays = 30
	v.RotationNextDueAt = &nextDue
	v.RotationProvider = "random"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE variables")).
		WithArgs(v.RotationEnabled, v.RotationIntervalDays, v.RotationNextDueAt, v.RotationProvider, v.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateRotationPolicy(context.Background(), v)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLVariableRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()

	mock.ExpectQuery(regexp.QuoteMeta("FROM variables")).
		WithArgs(v.ID).
		WillReturnRows(variableRow(v))

	got, err := repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, v.Key, got.Key)
	require.NotNil(t, got.Bundle)
	assert.Equal(t, v.Bundle.Ciphertext, got.Bundle.Ciphertext)
	assert.Equal(t, cryptoDomain.AESGCM, got.Bundle.Algorithm)
}

func TestPostgreSQLVariableRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("FROM variables")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), id)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, variableDomain.ErrVariableNotFound)
}

func TestPostgreSQLVariableRepository_GetByEnvironmentAndKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE environment_id = $1 AND key = $2")).
		WithArgs(v.EnvironmentID, v.Key).
		WillReturnRows(variableRow(v))

	got, err := repo.GetByEnvironmentAndKey(context.Background(), v.EnvironmentID, v.Key)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}

func TestPostgreSQLVariableRepository_GetByEnvironmentAndKey_NonSecret(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v := newTestVariable()
	v.Secret = false
	v.Value = "plain-value"
	v.Bundle = nil

	mock.ExpectQuery(regexp.QuoteMeta("WHERE environment_id = $1 AND key = $2")).
		WithArgs(v.EnvironmentID, v.Key).
		WillReturnRows(variableRow(v))

	got, err := repo.GetByEnvironmentAndKey(context.Background(), v.EnvironmentID, v.Key)
	require.NoError(t, err)
	assert.False(t, got.Secret)
	assert.Equal(t, "plain-value", got.Value)
	assert.Nil(t, got.Bundle)
}

func TestPostgreSQLVariableRepository_ListByEnvironment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	v1 := newTestVariable()
	v1.Key = "API_KEY"
	v2 := newTestVariable()
	v2.EnvironmentID = v1.EnvironmentID
	v2.Key = "DATABASE_URL"

	rows := variableRow(v1)
	rows.AddRow(
		v2.ID, v2.ProjectID, v2.EnvironmentID, v2.Key, v2.Value, v2.Secret,
		v2.Bundle.Ciphertext, v2.Bundle.Nonce, v2.Bundle.WrappedKey, v2.Bundle.KeyNonce,
		string(v2.Bundle.Algorithm), v2.Version,
		v2.RotationEnabled, v2.RotationIntervalDays, v2.RotationNextDueAt, v2.RotationProvider,
		v2.CreatedAt, v2.UpdatedAt, v2.DeletedAt,
	)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY key ASC")).
		WithArgs(v1.EnvironmentID).
		WillReturnRows(rows)

	got, err := repo.ListByEnvironment(context.Background(), v1.EnvironmentID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "API_KEY", got[0].Key)
	assert.Equal(t, "DATABASE_URL", got[1].Key)
}

func TestPostgreSQLVariableRepository_ListByEnvironment_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	envID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY key ASC")).
		WithArgs(envID).
		WillReturnRows(sqlmock.NewRows(variableRowColumns))

	got, err := repo.ListByEnvironment(context.Background(), envID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgreSQLVariableRepository_ListDueForRotation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	now := time.Now().UTC()
	due := now.Add(-time.Hour)
	v := newTestVariable()
	v.RotationEnabled = true
	v.RotationIntervalDays = 7
	v.RotationNextDueAt = &due
	v.RotationProvider = "random"

	mock.ExpectQuery(regexp.QuoteMeta("rotation_next_due_at <= $1")).
		WithArgs(now, 100).
		WillReturnRows(variableRow(v))

	got, err := repo.ListDueForRotation(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].RotationEnabled)
	assert.Equal(t, "random", got[0].RotationProvider)
}

func TestPostgreSQLVariableRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("SET deleted_at")).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLVariableRepository_Delete_AlreadyDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVariableRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("SET deleted_at")).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, variableDomain.ErrVariableNotFound)
}
