package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/google/uuid"
)

// JobRepository manages scheduled job persistence. Methods take an explicit
// Querier so enqueueing can share a transaction with the caller's own writes.
type JobRepository interface {
	// Create persists a pending job. Returns ErrDuplicateJob when a live job
	// already owns the same key.
	Create(ctx context.Context, q database.Querier, job *Job) error

	// GetByKey returns the most recent job for the key, live or finished.
	GetByKey(ctx context.Context, q database.Querier, key string) (*Job, error)

	// AcquireDue atomically claims up to limit due pending/retry jobs, moving
	// them to processing and incrementing their attempt count. Claimed jobs are
	// invisible to concurrent pollers (FOR UPDATE SKIP LOCKED), which is what
	// guarantees non-overlapping execution per key.
	AcquireDue(ctx context.Context, q database.Querier, dueTime time.Time, limit int) ([]*Job, error)

	// Complete marks a processing job as completed.
	Complete(ctx context.Context, q database.Querier, id uuid.UUID, finishedAt time.Time) error

	// Fail marks a job as terminally failed, retaining the error for operators.
	Fail(ctx context.Context, q database.Querier, id uuid.UUID, finishedAt time.Time, jobErr sql.NullString) error

	// MarkForRetry returns a job to the queue with a new fire time.
	MarkForRetry(ctx context.Context, q database.Querier, id uuid.UUID, nextFireAt time.Time, jobErr sql.NullString) error

	// Cancel removes a live job for the key. Returns false when the job has
	// already fired, finished, or never existed.
	Cancel(ctx context.Context, q database.Querier, key string) (bool, error)

	// PruneFinished trims completed/failed history per kind, retaining the most
	// recent keepCompleted and keepFailed records. Returns rows removed.
	PruneFinished(ctx context.Context, q database.Querier, keepCompleted, keepFailed int) (int64, error)

	// RequeueStale returns processing jobs older than the threshold to pending.
	// Covers workers that crashed after claiming a job.
	RequeueStale(ctx context.Context, q database.Querier, olderThan time.Time) (int64, error)
}
