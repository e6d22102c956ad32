package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

const subscriberColumns = `id, email, name, is_active, subscribed_at, created_at, updated_at`

// PgSubscriberRepository is the PostgreSQL implementation of domain.SubscriberRepository.
type PgSubscriberRepository struct {
	logger *slog.Logger
}

func NewPgSubscriberRepository(logger *slog.Logger) *PgSubscriberRepository {
	return &PgSubscriberRepository{logger: logger.With("repo", "subscribers")}
}

func (r *PgSubscriberRepository) Create(ctx context.Context, q database.Querier, sub *domain.Subscriber) error {
	query := `
		INSERT INTO subscribers (id, email, name, is_active, subscribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		sub.ID, sub.Email, sub.Name, sub.IsActive, sub.SubscribedAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating subscriber", "error", err, "email", sub.Email)
		return err
	}
	return nil
}

func (r *PgSubscriberRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*domain.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE email = $1`
	sub, err := scanSubscriber(q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting subscriber by email", "error", err, "email", email)
		return nil, err
	}
	return sub, nil
}

func (r *PgSubscriberRepository) Reactivate(ctx context.Context, q database.Querier, email string, name sql.NullString) (*domain.Subscriber, error) {
	query := `
		UPDATE subscribers
		SET is_active = TRUE, name = COALESCE($2, name), subscribed_at = $3, updated_at = $3
		WHERE email = $1
		RETURNING ` + subscriberColumns
	sub, err := scanSubscriber(q.QueryRow(ctx, query, email, name, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error reactivating subscriber", "error", err, "email", email)
		return nil, err
	}
	return sub, nil
}

func (r *PgSubscriberRepository) Deactivate(ctx context.Context, q database.Querier, email string) error {
	query := `UPDATE subscribers SET is_active = FALSE, updated_at = $2 WHERE email = $1 AND is_active`
	tag, err := q.Exec(ctx, query, email, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deactivating subscriber", "error", err, "email", email)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgSubscriberRepository) ListActive(ctx context.Context, q database.Querier) ([]*domain.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE is_active ORDER BY subscribed_at DESC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing active subscribers", "error", err)
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning subscriber row", "error", err)
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating subscriber rows", "error", err)
		return nil, err
	}
	return subs, nil
}

func (r *PgSubscriberRepository) ActiveEmails(ctx context.Context, q database.Querier) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT email FROM subscribers WHERE is_active ORDER BY subscribed_at DESC`)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying active subscriber emails", "error", err)
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

func scanSubscriber(row pgx.Row) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{}
	err := row.Scan(
		&sub.ID, &sub.Email, &sub.Name, &sub.IsActive,
		&sub.SubscribedAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
