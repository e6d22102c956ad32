package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/platform/messagebroker"
	"github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// Scheduler is the enqueue/cancel/status surface of the delayed job queue.
// It is constructed once at process start and passed to whichever component
// needs to schedule work; job execution lives in the Poller.
type Scheduler struct {
	db     database.Querier
	repo   domain.JobRepository
	broker messagebroker.Client // optional; used to nudge pollers
	logger *slog.Logger
}

func NewScheduler(db database.Querier, repo domain.JobRepository, broker messagebroker.Client, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:     db,
		repo:   repo,
		broker: broker,
		logger: logger.With("component", "scheduler"),
	}
}

// Schedule registers a job to fire at or after fireAt. The fire time must be
// strictly in the future; a live job for the same key is rejected with
// domain.ErrDuplicateJob (reject, not replace; the caller owns the key and
// must cancel first if it truly wants to reschedule).
func (s *Scheduler) Schedule(ctx context.Context, key, kind string, fireAt time.Time, payload any) (*domain.Job, error) {
	return s.ScheduleTx(ctx, s.db, key, kind, fireAt, payload)
}

// ScheduleTx is Schedule running on a caller-owned querier, typically a
// transaction, so enqueueing commits or rolls back together with the caller's
// own writes.
func (s *Scheduler) ScheduleTx(ctx context.Context, q database.Querier, key, kind string, fireAt time.Time, payload any) (*domain.Job, error) {
	if !fireAt.After(time.Now()) {
		return nil, domain.ErrFireTimeNotFuture
	}
	return s.enqueue(ctx, q, key, kind, fireAt, payload)
}

// EnqueueNowTx registers a job due immediately. Used for fire-and-forget work
// such as email delivery; the future-time check does not apply.
func (s *Scheduler) EnqueueNowTx(ctx context.Context, q database.Querier, key, kind string, payload any) (*domain.Job, error) {
	return s.enqueue(ctx, q, key, kind, time.Now().UTC(), payload)
}

func (s *Scheduler) enqueue(ctx context.Context, q database.Querier, key, kind string, fireAt time.Time, payload any) (*domain.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	job := domain.NewJob(uuid.New(), key, kind, data, fireAt)
	if err := s.repo.Create(ctx, q, job); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Scheduled job enqueued",
		"job_id", job.ID, "job_key", key, "kind", kind, "fire_at", job.FireAt.Format(time.RFC3339))
	return job, nil
}

// Cancel removes a live job for the key. It reports false when the job has
// already fired or never existed; callers racing the fire instant must rely on
// their callback's own re-validation, not on cancellation.
func (s *Scheduler) Cancel(ctx context.Context, key string) (bool, error) {
	cancelled, err := s.repo.Cancel(ctx, s.db, key)
	if err != nil {
		return false, err
	}
	if cancelled {
		s.logger.InfoContext(ctx, "Scheduled job cancelled", "job_key", key)
	}
	return cancelled, nil
}

// Status returns the most recent job for the key, or domain.ErrNotFound.
func (s *Scheduler) Status(ctx context.Context, key string) (*domain.Job, error) {
	return s.repo.GetByKey(ctx, s.db, key)
}

// Nudge asks running pollers to poll immediately instead of waiting for their
// next tick. Best effort: a lost nudge only delays execution by one interval.
func (s *Scheduler) Nudge(ctx context.Context) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, domain.SubjectJobEnqueued, nil); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish poller nudge", "error", err)
	}
}
