package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/platform/messagebroker"
	"github.com/Balvajs/newsletter-demo/internal/post_service/domain"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// JobScheduler is the slice of the scheduler the orchestrator needs.
type JobScheduler interface {
	ScheduleTx(ctx context.Context, q database.Querier, key, kind string, fireAt time.Time, payload any) (*schedDomain.Job, error)
	Cancel(ctx context.Context, key string) (bool, error)
	Status(ctx context.Context, key string) (*schedDomain.Job, error)
	Nudge(ctx context.Context)
}

// Dispatcher enqueues the email fan-out for a freshly published post. It runs
// on the caller's querier so the status flip and the enqueue share one
// transaction.
type Dispatcher interface {
	Dispatch(ctx context.Context, q database.Querier, post *domain.Post) error
}

// PostInput carries a create/update request with its desired status.
type PostInput struct {
	Title        string
	Content      string
	Excerpt      string
	Status       domain.PostStatus
	ScheduledFor *time.Time
}

// Application is the publish orchestrator: it owns the post status state
// machine and the side effects of entering PUBLISHED or SCHEDULED.
type Application struct {
	db         database.DB
	posts      domain.PostRepository
	scheduler  JobScheduler
	dispatcher Dispatcher
	broker     messagebroker.Client
	logger     *slog.Logger
}

func NewApplication(
	db database.DB,
	posts domain.PostRepository,
	scheduler JobScheduler,
	dispatcher Dispatcher,
	broker messagebroker.Client,
	logger *slog.Logger,
) *Application {
	return &Application{
		db:         db,
		posts:      posts,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		broker:     broker,
		logger:     logger.With("service", "post_app"),
	}
}

// CreatePost creates a post in the caller-selected initial status. PUBLISHED
// triggers the email fan-out immediately; SCHEDULED registers a publish job.
func (a *Application) CreatePost(ctx context.Context, in PostInput) (*domain.Post, error) {
	if !in.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	post := domain.NewPost(uuid.New(), in.Title, in.Content, in.Excerpt)

	switch in.Status {
	case domain.StatusDraft:
		if err := a.posts.Create(ctx, a.db, post); err != nil {
			return nil, err
		}

	case domain.StatusPublished:
		now := time.Now().UTC()
		post.Status = domain.StatusPublished
		post.PublishedAt = &now
		txErr := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
			if err := a.posts.Create(ctx, tx, post); err != nil {
				return err
			}
			return a.dispatcher.Dispatch(ctx, tx, post)
		})
		if txErr != nil {
			return nil, txErr
		}
		a.announcePublished(ctx, post)

	case domain.StatusScheduled:
		if in.ScheduledFor == nil {
			return nil, domain.ErrScheduledForRequired
		}
		fireAt := in.ScheduledFor.UTC()
		post.Status = domain.StatusScheduled
		post.ScheduledFor = &fireAt
		txErr := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
			if err := a.posts.Create(ctx, tx, post); err != nil {
				return err
			}
			_, err := a.scheduler.ScheduleTx(ctx, tx,
				domain.PublishJobKey(post.ID), domain.PublishJobKind, fireAt,
				domain.PublishJobPayload{PostID: post.ID})
			return err
		})
		if txErr != nil {
			return nil, txErr
		}
		a.logger.InfoContext(ctx, "Post scheduled for publication",
			"post_id", post.ID, "scheduled_for", fireAt.Format(time.RFC3339))
	}

	return post, nil
}

// UpdatePost applies an update request against the transition table. A request
// whose status equals the current status is a content re-save; a status change
// is only legal from DRAFT.
func (a *Application) UpdatePost(ctx context.Context, id uuid.UUID, in PostInput) (*domain.Post, error) {
	if !in.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	existing, err := a.posts.GetByID(ctx, a.db, id)
	if err != nil {
		return nil, err
	}

	if in.Status == existing.Status {
		return a.resaveContent(ctx, existing, in)
	}

	if existing.Status != domain.StatusDraft {
		return nil, domain.ErrStatusLocked
	}

	switch in.Status {
	case domain.StatusPublished:
		return a.publishDraft(ctx, existing, in)
	case domain.StatusScheduled:
		return a.scheduleDraft(ctx, existing, in)
	default:
		// DRAFT -> DRAFT is handled by the re-save branch above.
		return nil, domain.ErrInvalidStatus
	}
}

// resaveContent applies title/content/excerpt edits without touching status,
// slug, publishedAt or scheduledFor.
func (a *Application) resaveContent(ctx context.Context, existing *domain.Post, in PostInput) (*domain.Post, error) {
	if existing.Status == domain.StatusScheduled && in.ScheduledFor != nil &&
		existing.ScheduledFor != nil && !in.ScheduledFor.Equal(*existing.ScheduledFor) {
		return nil, domain.ErrScheduleChange
	}
	return a.posts.UpdateContent(ctx, a.db, existing.ID, in.Title, in.Content, a.effectiveExcerpt(in))
}

func (a *Application) publishDraft(ctx context.Context, existing *domain.Post, in PostInput) (*domain.Post, error) {
	now := time.Now().UTC()
	var updated *domain.Post
	txErr := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		post, err := a.posts.UpdateContent(ctx, tx, existing.ID, in.Title, in.Content, a.effectiveExcerpt(in))
		if err != nil {
			return err
		}
		flipped, err := a.posts.Publish(ctx, tx, existing.ID, now, domain.StatusDraft)
		if err != nil {
			return err
		}
		if !flipped {
			return domain.ErrStatusLocked
		}
		post.Status = domain.StatusPublished
		post.PublishedAt = &now
		post.ScheduledFor = nil
		updated = post
		return a.dispatcher.Dispatch(ctx, tx, post)
	})
	if txErr != nil {
		return nil, txErr
	}
	a.announcePublished(ctx, updated)
	return updated, nil
}

func (a *Application) scheduleDraft(ctx context.Context, existing *domain.Post, in PostInput) (*domain.Post, error) {
	if in.ScheduledFor == nil {
		return nil, domain.ErrScheduledForRequired
	}
	fireAt := in.ScheduledFor.UTC()
	var updated *domain.Post
	txErr := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		post, err := a.posts.UpdateContent(ctx, tx, existing.ID, in.Title, in.Content, a.effectiveExcerpt(in))
		if err != nil {
			return err
		}
		flipped, err := a.posts.SetScheduled(ctx, tx, existing.ID, fireAt)
		if err != nil {
			return err
		}
		if !flipped {
			return domain.ErrStatusLocked
		}
		post.Status = domain.StatusScheduled
		post.ScheduledFor = &fireAt
		updated = post
		_, err = a.scheduler.ScheduleTx(ctx, tx,
			domain.PublishJobKey(existing.ID), domain.PublishJobKind, fireAt,
			domain.PublishJobPayload{PostID: existing.ID})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	a.logger.InfoContext(ctx, "Post scheduled for publication",
		"post_id", existing.ID, "scheduled_for", fireAt.Format(time.RFC3339))
	return updated, nil
}

// DeletePost removes a post and cancels its pending publish job, if any, so a
// deleted post can never fire a publication.
func (a *Application) DeletePost(ctx context.Context, id uuid.UUID) error {
	if err := a.posts.Delete(ctx, a.db, id); err != nil {
		return err
	}
	cancelled, err := a.scheduler.Cancel(ctx, domain.PublishJobKey(id))
	if err != nil {
		// The post is gone and the publish callback re-validates, so a stuck
		// job is harmless; surface it for operators and move on.
		a.logger.ErrorContext(ctx, "Failed to cancel publish job for deleted post", "error", err, "post_id", id)
		return nil
	}
	if cancelled {
		a.logger.InfoContext(ctx, "Cancelled publish job for deleted post", "post_id", id)
	}
	return nil
}

func (a *Application) GetPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	return a.posts.GetByID(ctx, a.db, id)
}

func (a *Application) ListPosts(ctx context.Context, status *domain.PostStatus, limit, offset int) ([]*domain.Post, error) {
	return a.posts.List(ctx, a.db, status, limit, offset)
}

// ScheduleStatus returns the publish job owned by the post, or
// scheduler domain ErrNotFound when the post never had one.
func (a *Application) ScheduleStatus(ctx context.Context, id uuid.UUID) (*schedDomain.Job, error) {
	if _, err := a.posts.GetByID(ctx, a.db, id); err != nil {
		return nil, err
	}
	return a.scheduler.Status(ctx, domain.PublishJobKey(id))
}

func (a *Application) effectiveExcerpt(in PostInput) string {
	if in.Excerpt != "" {
		return in.Excerpt
	}
	return domain.DefaultExcerpt(in.Content)
}

// announcePublished emits the publication event and nudges pollers so the
// fan-out job is picked up promptly. Both are best effort; the durable job is
// already committed.
func (a *Application) announcePublished(ctx context.Context, post *domain.Post) {
	a.scheduler.Nudge(ctx)
	if a.broker == nil {
		return
	}
	event := domain.PostPublishedEvent{
		PostID:      post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		PublishedAt: *post.PublishedAt,
	}
	data, err := marshalEvent(event)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to marshal published event", "error", err, "post_id", post.ID)
		return
	}
	if err := a.broker.Publish(ctx, domain.SubjectPostPublished, data); err != nil {
		a.logger.WarnContext(ctx, "Failed to publish post published event", "error", err, "post_id", post.ID)
	}
}

func marshalEvent(event domain.PostPublishedEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
