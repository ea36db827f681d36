package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncDomain "github.com/allisson/envsync/internal/sync/domain"
)

var jobRowColumns = []string{
	"id", "connection_id", "environment_id", "trigger_event", "status", "retries",
	"last_error", "scheduled_at", "processed_at", "created_at", "updated_at",
}

func newTestJob() *syncDomain.SyncJob {
	now := time.Now().UTC()
	return &syncDomain.SyncJob{
		ID:            uuid.Must(uuid.NewV7()),
		ConnectionID:  uuid.Must(uuid.NewV7()),
		EnvironmentID: uuid.Must(uuid.NewV7()),
		Trigger:       "variable_updated",
		Status:        syncDomain.JobStatusPending,
		ScheduledAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func jobRow(job *syncDomain.SyncJob) *sqlmock.Rows {
	return sqlmock.NewRows(jobRowColumns).AddRow(
		job.ID, job.ConnectionID, job.EnvironmentID, job.Trigger, job.Status,
		job.Retries, job.LastError, job.ScheduledAt, job.ProcessedAt,
		job.CreatedAt, job.UpdatedAt,
	)
}

func TestPostgreSQLJobRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLJobRepository(db)
	job := newTestJob()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_jobs")).
		WithArgs(job.ID, job.ConnectionID, job.EnvironmentID, job.Trigger, job.Status,
			job.Retries, job.LastError, job.ScheduledAt, job.ProcessedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLJobRepository_GetPendingJobs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLJobRepository(db)
	job := newTestJob()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(syncDomain.JobStatusPending, now, 10).
		WillReturnRows(jobRow(job))

	jobs, err := repo.GetPendingJobs(context.Background(), now, 10)
	require.NoError(t, err)

	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.Equal(t, syncDomain.JobStatusPending, jobs[0].Status)
}

func TestPostgreSQLJobRepository_GetPendingJobs_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLJobRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(syncDomain.JobStatusPending, now, 10).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	jobs, err := repo.GetPendingJobs(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestPostgreSQLJobRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLJobRepository(db)
	job := newTestJob()
	job.Status = syncDomain.JobStatusProcessed
	processedAt := time.Now().UTC()
	job.ProcessedAt = &processedAt

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sync_jobs")).
		WithArgs(job.Status, job.Retries, job.LastError, job.ScheduledAt,
			job.ProcessedAt, job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLJobRepository_ListByConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLJobRepository(db)
	job := newTestJob()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE connection_id = $1")).
		WithArgs(job.ConnectionID, 20).
		WillReturnRows(jobRow(job))

	jobs, err := repo.ListByConnection(context.Background(), job.ConnectionID, 20)
	require.NoError(t, err)

	require.Len(t, jobs, 1)
	assert.Equal(t, job.ConnectionID, jobs[0].ConnectionID)
}
