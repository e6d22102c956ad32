package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/post_service/domain"
)

const postColumns = `id, title, content, excerpt, slug, status, published_at, scheduled_for, created_at, updated_at`

// PgPostRepository is the PostgreSQL implementation of domain.PostRepository.
type PgPostRepository struct {
	logger *slog.Logger
}

func NewPgPostRepository(logger *slog.Logger) *PgPostRepository {
	return &PgPostRepository{logger: logger.With("repo", "posts")}
}

func (r *PgPostRepository) Create(ctx context.Context, q database.Querier, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, title, content, excerpt, slug, status, published_at, scheduled_for, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		post.ID, post.Title, post.Content, post.Excerpt, post.Slug, post.Status,
		post.PublishedAt, post.ScheduledFor, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating post", "error", err, "post_id", post.ID)
		return err
	}
	return nil
}

func (r *PgPostRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting post by ID", "error", err, "post_id", id)
		return nil, err
	}
	return post, nil
}

func (r *PgPostRepository) List(ctx context.Context, q database.Querier, status *domain.PostStatus, limit, offset int) ([]*domain.Post, error) {
	var rows pgx.Rows
	var err error
	if status != nil {
		query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = q.Query(ctx, query, *status, limit, offset)
	} else {
		query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = q.Query(ctx, query, limit, offset)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing posts", "error", err)
		return nil, err
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning post row", "error", err)
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating post rows", "error", err)
		return nil, err
	}
	return posts, nil
}

func (r *PgPostRepository) UpdateContent(ctx context.Context, q database.Querier, id uuid.UUID, title, content, excerpt string) (*domain.Post, error) {
	query := `
		UPDATE posts
		SET title = $2, content = $3, excerpt = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + postColumns
	post, err := scanPost(q.QueryRow(ctx, query, id, title, content, excerpt, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error updating post content", "error", err, "post_id", id)
		return nil, err
	}
	return post, nil
}

func (r *PgPostRepository) Publish(ctx context.Context, q database.Querier, id uuid.UUID, publishedAt time.Time, fromStatus domain.PostStatus) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2, published_at = $3, scheduled_for = NULL, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := q.Exec(ctx, query, id, domain.StatusPublished, publishedAt, fromStatus)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error publishing post", "error", err, "post_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgPostRepository) SetScheduled(ctx context.Context, q database.Querier, id uuid.UUID, scheduledFor time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2, scheduled_for = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`
	tag, err := q.Exec(ctx, query, id, domain.StatusScheduled, scheduledFor, time.Now().UTC(), domain.StatusDraft)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error scheduling post", "error", err, "post_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgPostRepository) Delete(ctx context.Context, q database.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting post", "error", err, "post_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	post := &domain.Post{}
	err := row.Scan(
		&post.ID, &post.Title, &post.Content, &post.Excerpt, &post.Slug,
		&post.Status, &post.PublishedAt, &post.ScheduledFor,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}
