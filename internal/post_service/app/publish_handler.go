package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Balvajs/newsletter-demo/internal/post_service/domain"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// HandlePublishJob is the scheduler callback for domain.PublishJobKind. It
// re-validates the post before acting: between scheduling and fire the post
// may have been deleted, or another worker may have raced us past the cancel
// window, so the fire-time state is the only state that counts.
func (a *Application) HandlePublishJob(ctx context.Context, job *schedDomain.Job) error {
	var payload domain.PublishJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: decode publish payload: %v", schedDomain.ErrPermanent, err)
	}

	logger := a.logger.With("post_id", payload.PostID, "job_key", job.Key)

	post, err := a.posts.GetByID(ctx, a.db, payload.PostID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.InfoContext(ctx, "Publish job fired for a deleted post, skipping")
			return nil
		}
		return fmt.Errorf("load post for publish: %w", err)
	}
	if post.Status != domain.StatusScheduled {
		logger.InfoContext(ctx, "Publish job fired but post is no longer scheduled, skipping", "status", post.Status)
		return nil
	}

	now := time.Now().UTC()
	flipped := false
	txErr := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		var err error
		// Conditional flip: only one concurrent firing can win the guard, so
		// the post is published (and the fan-out dispatched) exactly once.
		flipped, err = a.posts.Publish(ctx, tx, post.ID, now, domain.StatusScheduled)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		post.Status = domain.StatusPublished
		post.PublishedAt = &now
		post.ScheduledFor = nil
		return a.dispatcher.Dispatch(ctx, tx, post)
	})
	if txErr != nil {
		return fmt.Errorf("publish post %s: %w", post.ID, txErr)
	}

	if !flipped {
		logger.InfoContext(ctx, "Post was published by a concurrent firing, skipping")
		return nil
	}

	logger.InfoContext(ctx, "Post published", "published_at", now.Format(time.RFC3339))
	a.announcePublished(ctx, post)
	return nil
}
