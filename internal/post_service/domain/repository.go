package domain

import (
	"context"
	"time"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/google/uuid"
)

// PostRepository manages post persistence. Methods take an explicit Querier so
// status flips can share a transaction with job enqueueing.
type PostRepository interface {
	Create(ctx context.Context, q database.Querier, post *Post) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*Post, error)

	// List returns posts newest first, optionally filtered by status.
	List(ctx context.Context, q database.Querier, status *PostStatus, limit, offset int) ([]*Post, error)

	// UpdateContent applies a content-only edit (title, content, excerpt).
	// Slug, status and timestamps other than updated_at are untouched.
	UpdateContent(ctx context.Context, q database.Querier, id uuid.UUID, title, content, excerpt string) (*Post, error)

	// Publish conditionally flips a post to PUBLISHED, setting published_at and
	// clearing scheduled_for, but only while the post is still in fromStatus.
	// It reports false when the guard failed, which callers treat as "someone
	// else already published or the post is gone". This is the exactly-once
	// flip primitive.
	Publish(ctx context.Context, q database.Querier, id uuid.UUID, publishedAt time.Time, fromStatus PostStatus) (bool, error)

	// SetScheduled flips a DRAFT post to SCHEDULED with the given fire time.
	SetScheduled(ctx context.Context, q database.Querier, id uuid.UUID, scheduledFor time.Time) (bool, error)

	Delete(ctx context.Context, q database.Querier, id uuid.UUID) error
}
