package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// PollerConfig holds configuration for the job poller.
type PollerConfig struct {
	PollingInterval time.Duration
	JobBatchSize    int
	MaxRetry        int
}

// Poller drives job execution: it claims due jobs in batches and dispatches
// each one to the handler registered for its kind. A claimed job is invisible
// to other pollers, so each key executes on at most one worker at a time.
type Poller struct {
	db       database.Querier
	repo     domain.JobRepository
	registry *Registry
	logger   *slog.Logger
	config   PollerConfig
	wake     chan struct{}
}

func NewPoller(db database.Querier, repo domain.JobRepository, registry *Registry, logger *slog.Logger, cfg PollerConfig) *Poller {
	return &Poller{
		db:       db,
		repo:     repo,
		registry: registry,
		logger:   logger.With("component", "job_poller"),
		config:   cfg,
		wake:     make(chan struct{}, 1),
	}
}

// Wake triggers an immediate poll. Safe to call from any goroutine; nudges
// arriving while a poll is pending collapse into one.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled. It keeps polling while full batches come
// back so a backlog drains faster than one batch per tick.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Job poller started",
		"polling_interval", p.config.PollingInterval, "batch_size", p.config.JobBatchSize)

	ticker := time.NewTicker(p.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "Job poller stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		case <-p.wake:
		}

		for {
			processed, err := p.PollOnce(ctx)
			if err != nil {
				p.logger.ErrorContext(ctx, "Poll cycle failed", "error", err)
				return err
			}
			if processed < p.config.JobBatchSize {
				break
			}
		}
	}
}

// PollOnce claims one batch of due jobs and processes it. It returns the
// number of jobs attempted; an error is returned only for failures of the
// poller itself (per-job handler failures are absorbed into retry state).
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	jobs, err := p.repo.AcquireDue(ctx, p.db, time.Now().UTC(), p.config.JobBatchSize)
	if err != nil {
		if errors.Is(err, domain.ErrNoDueJobs) {
			return 0, nil
		}
		return 0, fmt.Errorf("acquire due jobs: %w", err)
	}

	for _, job := range jobs {
		p.processJob(ctx, job)
	}
	return len(jobs), nil
}

func (p *Poller) processJob(ctx context.Context, job *domain.Job) {
	logger := p.logger.With("job_id", job.ID, "job_key", job.Key, "kind", job.Kind, "attempt", job.Attempts)
	logger.InfoContext(ctx, "Processing job")

	reg, ok := p.registry.lookup(job.Kind)
	if !ok {
		logger.WarnContext(ctx, "No handler registered for job kind")
		p.finishFailed(ctx, job, fmt.Errorf("no handler registered for kind %q", job.Kind), logger)
		jobsProcessedCounter.WithLabelValues(job.Kind, "failed").Inc()
		return
	}

	timer := prometheus.NewTimer(jobProcessingDurationHist.WithLabelValues(job.Kind))
	handlerErr := p.invoke(ctx, reg.handler, job)
	timer.ObserveDuration()

	switch {
	case handlerErr == nil:
		if err := p.repo.Complete(ctx, p.db, job.ID, time.Now().UTC()); err != nil {
			logger.ErrorContext(ctx, "Failed to mark job completed", "error", err)
		}
		jobsProcessedCounter.WithLabelValues(job.Kind, "completed").Inc()

	case errors.Is(handlerErr, domain.ErrPermanent) || job.Attempts > p.config.MaxRetry:
		logger.WarnContext(ctx, "Job failed terminally", "error", handlerErr, "max_retry", p.config.MaxRetry)
		p.finishFailed(ctx, job, handlerErr, logger)
		jobsProcessedCounter.WithLabelValues(job.Kind, "failed").Inc()

	default:
		nextFireAt := time.Now().UTC().Add(reg.backoff.Delay(job.Attempts))
		logger.InfoContext(ctx, "Scheduling job retry", "error", handlerErr, "next_fire_at", nextFireAt)
		jobErr := sql.NullString{String: handlerErr.Error(), Valid: true}
		if err := p.repo.MarkForRetry(ctx, p.db, job.ID, nextFireAt, jobErr); err != nil {
			logger.ErrorContext(ctx, "Failed to mark job for retry", "error", err)
		}
		jobsProcessedCounter.WithLabelValues(job.Kind, "retried").Inc()
	}
}

// invoke runs a handler, converting panics into errors so one broken callback
// cannot take down the worker.
func (p *Poller) invoke(ctx context.Context, h Handler, job *domain.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ctx, job)
}

func (p *Poller) finishFailed(ctx context.Context, job *domain.Job, cause error, logger *slog.Logger) {
	jobErr := sql.NullString{String: cause.Error(), Valid: true}
	if err := p.repo.Fail(ctx, p.db, job.ID, time.Now().UTC(), jobErr); err != nil {
		logger.ErrorContext(ctx, "Failed to mark job as failed", "error", err)
	}
}
