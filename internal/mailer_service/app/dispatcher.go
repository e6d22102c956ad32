package app

import (
	"context"
	"log/slog"

	"github.com/Balvajs/newsletter-demo/internal/mailer_service/domain"
	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	postDomain "github.com/Balvajs/newsletter-demo/internal/post_service/domain"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
	subscriberDomain "github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

// JobEnqueuer is the slice of the scheduler the dispatcher needs.
type JobEnqueuer interface {
	EnqueueNowTx(ctx context.Context, q database.Querier, key, kind string, payload any) (*schedDomain.Job, error)
}

// Dispatcher fans a published post out to the active subscriber set by
// enqueueing one durable delivery job per publication event.
type Dispatcher struct {
	subscribers subscriberDomain.SubscriberRepository
	enqueuer    JobEnqueuer
	logger      *slog.Logger
}

func NewDispatcher(subscribers subscriberDomain.SubscriberRepository, enqueuer JobEnqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subscribers: subscribers,
		enqueuer:    enqueuer,
		logger:      logger.With("component", "email_dispatcher"),
	}
}

// Dispatch snapshots the active subscriber emails at dispatch time and
// enqueues the delivery job on the caller's querier, so the enqueue commits or
// rolls back together with the publish status flip. An empty subscriber set is
// a no-op, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, q database.Querier, post *postDomain.Post) error {
	recipients, err := d.subscribers.ActiveEmails(ctx, q)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		d.logger.InfoContext(ctx, "No active subscribers, skipping email fan-out", "post_id", post.ID)
		return nil
	}

	payload := domain.DeliveryJobPayload{
		PostID:     post.ID,
		Recipients: recipients,
		Subject:    "New post: " + post.Title,
		Content:    post.Content,
	}
	if _, err := d.enqueuer.EnqueueNowTx(ctx, q, domain.DeliveryJobKey(post.ID), domain.DeliveryJobKind, payload); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "Email delivery job enqueued",
		"post_id", post.ID, "recipient_count", len(recipients))
	return nil
}
