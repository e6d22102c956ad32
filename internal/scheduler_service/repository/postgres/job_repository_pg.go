package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

const jobColumns = `id, job_key, kind, payload, fire_at, status, attempts, last_error, fired_at, finished_at, created_at, updated_at`

// PgJobRepository is the PostgreSQL implementation of domain.JobRepository.
type PgJobRepository struct {
	logger *slog.Logger
}

func NewPgJobRepository(logger *slog.Logger) *PgJobRepository {
	return &PgJobRepository{logger: logger.With("repo", "scheduled_jobs")}
}

func (r *PgJobRepository) Create(ctx context.Context, q database.Querier, job *domain.Job) error {
	// The conflict target is the partial unique index over live statuses; an
	// untouched insert means another live job already owns the key.
	query := `
		INSERT INTO scheduled_jobs (id, job_key, kind, payload, fire_at, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_key) WHERE status IN ('pending', 'processing', 'retry') DO NOTHING
	`
	tag, err := q.Exec(ctx, query,
		job.ID, job.Key, job.Kind, job.Payload, job.FireAt, job.Status,
		job.Attempts, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating scheduled job", "error", err, "job_key", job.Key)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateJob
	}
	return nil
}

func (r *PgJobRepository) GetByKey(ctx context.Context, q database.Querier, key string) (*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scheduled_jobs
		WHERE job_key = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	job, err := scanJob(q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting scheduled job by key", "error", err, "job_key", key)
		return nil, err
	}
	return job, nil
}

func (r *PgJobRepository) AcquireDue(ctx context.Context, q database.Querier, dueTime time.Time, limit int) ([]*domain.Job, error) {
	query := `
		WITH due_jobs AS (
			SELECT id
			FROM scheduled_jobs
			WHERE status IN ('pending', 'retry') AND fire_at <= $1
			ORDER BY fire_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scheduled_jobs sj
		SET status = 'processing', attempts = sj.attempts + 1, fired_at = $3, updated_at = $3
		FROM due_jobs dj
		WHERE sj.id = dj.id
		RETURNING sj.id, sj.job_key, sj.kind, sj.payload, sj.fire_at, sj.status, sj.attempts, sj.last_error, sj.fired_at, sj.finished_at, sj.created_at, sj.updated_at
	`
	now := time.Now().UTC()
	rows, err := q.Query(ctx, query, dueTime, limit, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error acquiring due jobs", "error", err)
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning acquired job row", "error", err)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating acquired job rows", "error", err)
		return nil, err
	}

	if len(jobs) == 0 {
		return nil, domain.ErrNoDueJobs
	}
	return jobs, nil
}

func (r *PgJobRepository) Complete(ctx context.Context, q database.Querier, id uuid.UUID, finishedAt time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'completed', finished_at = $2, last_error = NULL, updated_at = $2
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, id, finishedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error completing scheduled job", "error", err, "job_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgJobRepository) Fail(ctx context.Context, q database.Querier, id uuid.UUID, finishedAt time.Time, jobErr sql.NullString) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'failed', finished_at = $2, last_error = $3, updated_at = $2
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, id, finishedAt, jobErr)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error failing scheduled job", "error", err, "job_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgJobRepository) MarkForRetry(ctx context.Context, q database.Querier, id uuid.UUID, nextFireAt time.Time, jobErr sql.NullString) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'retry', fire_at = $2, last_error = $3, fired_at = NULL, updated_at = $4
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, id, nextFireAt, jobErr, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking scheduled job for retry", "error", err, "job_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgJobRepository) Cancel(ctx context.Context, q database.Querier, key string) (bool, error) {
	// Only pending/retry jobs can be cancelled; a job mid-flight has already
	// fired, and the firing callback is responsible for re-validating state.
	query := `
		UPDATE scheduled_jobs
		SET status = 'cancelled', finished_at = $2, updated_at = $2
		WHERE job_key = $1 AND status IN ('pending', 'retry')
	`
	now := time.Now().UTC()
	tag, err := q.Exec(ctx, query, key, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error cancelling scheduled job", "error", err, "job_key", key)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgJobRepository) PruneFinished(ctx context.Context, q database.Querier, keepCompleted, keepFailed int) (int64, error) {
	query := `
		DELETE FROM scheduled_jobs
		WHERE id IN (
			SELECT id FROM (
				SELECT id, status,
				       row_number() OVER (PARTITION BY kind, status ORDER BY finished_at DESC) AS rn
				FROM scheduled_jobs
				WHERE status IN ('completed', 'cancelled', 'failed')
			) ranked
			WHERE (status IN ('completed', 'cancelled') AND rn > $1)
			   OR (status = 'failed' AND rn > $2)
		)
	`
	tag, err := q.Exec(ctx, query, keepCompleted, keepFailed)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error pruning finished jobs", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgJobRepository) RequeueStale(ctx context.Context, q database.Querier, olderThan time.Time) (int64, error) {
	query := `
		UPDATE scheduled_jobs
		SET status = 'pending', fired_at = NULL, updated_at = $2
		WHERE status = 'processing' AND fired_at < $1
	`
	tag, err := q.Exec(ctx, query, olderThan, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error requeueing stale jobs", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	job := &domain.Job{}
	var payload []byte
	err := row.Scan(
		&job.ID, &job.Key, &job.Kind, &payload, &job.FireAt, &job.Status,
		&job.Attempts, &job.LastError, &job.FiredAt, &job.FinishedAt,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Payload = json.RawMessage(payload)
	return job, nil
}
