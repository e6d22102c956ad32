package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

func setupJobRepoTest(t *testing.T) (*PgJobRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgJobRepository(logger), mockPool
}

func TestPgJobRepository_Create(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	job := domain.NewJob(uuid.New(), "publish-123", "post.publish", []byte(`{"post_id":"123"}`), time.Now().Add(time.Hour))

	t.Run("Success", func(t *testing.T) {
		mockPool.ExpectExec(`INSERT INTO scheduled_jobs`).
			WithArgs(job.ID, job.Key, job.Kind, job.Payload, job.FireAt, job.Status,
				job.Attempts, job.CreatedAt, job.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(context.Background(), mockPool, job)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateLiveKey", func(t *testing.T) {
		mockPool.ExpectExec(`INSERT INTO scheduled_jobs`).
			WithArgs(job.ID, job.Key, job.Kind, job.Payload, job.FireAt, job.Status,
				job.Attempts, job.CreatedAt, job.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err := repo.Create(context.Background(), mockPool, job)
		assert.ErrorIs(t, err, domain.ErrDuplicateJob)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgJobRepository_GetByKey(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	jobID := uuid.New()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		rows := mockPool.NewRows([]string{"id", "job_key", "kind", "payload", "fire_at", "status", "attempts", "last_error", "fired_at", "finished_at", "created_at", "updated_at"}).
			AddRow(jobID, "publish-123", "post.publish", []byte(`{}`), now, domain.StatusPending, 0, nil, nil, nil, now, now)

		mockPool.ExpectQuery(`SELECT (.+) FROM scheduled_jobs WHERE job_key = \$1`).
			WithArgs("publish-123").
			WillReturnRows(rows)

		job, err := repo.GetByKey(context.Background(), mockPool, "publish-123")
		require.NoError(t, err)
		assert.Equal(t, jobID, job.ID)
		assert.Equal(t, domain.StatusPending, job.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT (.+) FROM scheduled_jobs WHERE job_key = \$1`).
			WithArgs("publish-missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByKey(context.Background(), mockPool, "publish-missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgJobRepository_AcquireDue(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	dueTime := time.Now()

	t.Run("ClaimsBatch", func(t *testing.T) {
		jobID := uuid.New()
		rows := mockPool.NewRows([]string{"id", "job_key", "kind", "payload", "fire_at", "status", "attempts", "last_error", "fired_at", "finished_at", "created_at", "updated_at"}).
			AddRow(jobID, "publish-123", "post.publish", []byte(`{}`), dueTime, domain.StatusProcessing, 1, nil, nil, nil, dueTime, dueTime)

		mockPool.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WithArgs(dueTime, 10, pgxmock.AnyArg()).
			WillReturnRows(rows)

		jobs, err := repo.AcquireDue(context.Background(), mockPool, dueTime, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, domain.StatusProcessing, jobs[0].Status)
		assert.Equal(t, 1, jobs[0].Attempts)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		rows := mockPool.NewRows([]string{"id", "job_key", "kind", "payload", "fire_at", "status", "attempts", "last_error", "fired_at", "finished_at", "created_at", "updated_at"})

		mockPool.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WithArgs(dueTime, 10, pgxmock.AnyArg()).
			WillReturnRows(rows)

		_, err := repo.AcquireDue(context.Background(), mockPool, dueTime, 10)
		assert.ErrorIs(t, err, domain.ErrNoDueJobs)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgJobRepository_Cancel(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	t.Run("CancelsLiveJob", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE scheduled_jobs`).
			WithArgs("publish-123", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		cancelled, err := repo.Cancel(context.Background(), mockPool, "publish-123")
		require.NoError(t, err)
		assert.True(t, cancelled)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("AlreadyFired", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE scheduled_jobs`).
			WithArgs("publish-123", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		cancelled, err := repo.Cancel(context.Background(), mockPool, "publish-123")
		require.NoError(t, err)
		assert.False(t, cancelled)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgJobRepository_Complete_NotFound(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	jobID := uuid.New()
	finishedAt := time.Now()
	mockPool.ExpectExec(`UPDATE scheduled_jobs`).
		WithArgs(jobID, finishedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Complete(context.Background(), mockPool, jobID, finishedAt)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgJobRepository_PruneFinished(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	mockPool.ExpectExec(`DELETE FROM scheduled_jobs`).
		WithArgs(10, 5).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	pruned, err := repo.PruneFinished(context.Background(), mockPool, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pruned)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgJobRepository_RequeueStale(t *testing.T) {
	repo, mockPool := setupJobRepoTest(t)
	defer mockPool.Close()

	olderThan := time.Now().Add(-10 * time.Minute)
	mockPool.ExpectExec(`UPDATE scheduled_jobs`).
		WithArgs(olderThan, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	requeued, err := repo.RequeueStale(context.Background(), mockPool, olderThan)
	require.NoError(t, err)
	assert.Equal(t, int64(2), requeued)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
