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

var versionRowColumns = []string{
	"id", "variable_id", "version", "change_type", "value",
	"ciphertext", "nonce", "wrapped_key", "key_nonce", "algorithm", "actor", "created_at",
}

func newTestVersion() *variableDomain.VariableVersion {
	return &variableDomain.VariableVersion{
		ID:         uuid.Must(uuid.NewV7()),
		VariableID: uuid.Must(uuid.NewV7()),
		Version:    1,
		ChangeType: variableDomain.ChangeTypeCreated,
		Value:      "",
		Bundle: &cryptoDomain.SealedBundle{
			Ciphertext: []byte("ciphertext"),
			Nonce:      []byte("nonce-123456"),
			WrappedKey: []byte("wrapped-key"),
			KeyNonce:   []byte("key-nonce-12"),
			Algorithm:  cryptoDomain.ChaCha20,
		},
		Actor:     "worker",
		CreatedAt: time.Now().UTC(),
	}
}

func versionRow(vv *variableDomain.VariableVersion) *sqlmock.Rows {
	return sqlmock.NewRows(versionRowColumns).AddRow(
		vv.ID, vv.VariableID, vv.Version, vv.ChangeType, vv.Value,
		vv.Bundle.Ciphertext, vv.Bundle.Nonce, vv.Bundle.WrappedKey, vv.Bundle.KeyNonce,
		string(vv.Bundle.Algorithm), vv.Actor, vv.CreatedAt,
	)
}

func TestPostgreSQLVersionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVersionRepository(db)
	vv := newTestVersion()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO variable_versions")).
		WithArgs(
			vv.ID, vv.VariableID, vv.Version, vv.ChangeType, vv.Value,
			vv.Bundle.Ciphertext, vv.Bundle.Nonce, vv.Bundle.WrappedKey, vv.Bundle.KeyNonce,
			sql.NullString{String: string(vv.Bundle.Algorithm), Valid: true},
			vv.Actor, vv.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), vv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLVersionRepository_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVersionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO variable_versions")).
		WillReturnError(errors.New("connection refused"))

	err = repo.Create(context.Background(), newTestVersion())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create variable version")
}

func TestPostgreSQLVersionRepository_GetByVariableAndVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVersionRepository(db)
	vv := newTestVersion()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE variable_id = $1 AND version = $2")).
		WithArgs(vv.VariableID, vv.Version).
		WillReturnRows(versionRow(vv))

	got, err := repo.GetByVariableAndVersion(context.Background(), vv.VariableID, vv.Version)
	require.NoError(t, err)
	assert.Equal(t, vv.ID, got.ID)
	assert.Equal(t, variableDomain.ChangeTypeCreated, got.ChangeType)
	require.NotNil(t, got.Bundle)
	assert.Equal(t, cryptoDomain.ChaCha20, got.Bundle.Algorithm)
}

func TestPostgreSQLVersionRepository_GetByVariableAndVersion_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE variable_id = $1 AND version = $2")).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByVariableAndVersion(context.Background(), uuid.Must(uuid.NewV7()), 42)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, variableDomain.ErrVersionNotFound)
}

func TestPostgreSQLVersionRepository_ListByVariable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLVersionRepository(db)
	vv1 := newTestVersion()
	vv2 := newTestVersion()
	vv2.VariableID = vv1.VariableID
	vv2.Version = 2
	vv2.ChangeType = variableDomain.ChangeTypeUpdated

	rows := sqlmock.NewRows(versionRowColumns).AddRow(
		vv2.ID, vv2.VariableID, vv2.Version, vv2.ChangeType, vv2.Value,
		vv2.Bundle.Ciphertext, vv2.Bundle.Nonce, vv2.Bundle.WrappedKey, vv2.Bundle.KeyNonce,
		string(vv2.Bundle.Algorithm), vv2.Actor, vv2.CreatedAt,
	).AddRow(
		vv1.ID, vv1.VariableID, vv1.Version, vv1.ChangeType, vv1.Value,
		vv1.Bundle.Ciphertext, vv1.Bundle.Nonce, vv1.Bundle.WrappedKey, vv1.Bundle.KeyNonce,
		string(vv1.Bundle.Algorithm), vv1.Actor, vv1.CreatedAt,
	)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version DESC")).
		WithArgs(vv1.VariableID).
		WillReturnRows(rows)

	got, err := repo.ListByVariable(context.Background(), vv1.VariableID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(2), got[0].Version)
	assert.Equal(t, uint(1), got[1].Version)
}
