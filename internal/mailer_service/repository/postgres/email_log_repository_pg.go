package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/Balvajs/newsletter-demo/internal/mailer_service/domain"
	"github.com/Balvajs/newsletter-demo/internal/platform/database"
)

// PgEmailLogRepository persists per-recipient delivery attempts.
type PgEmailLogRepository struct {
	logger *slog.Logger
}

func NewPgEmailLogRepository(logger *slog.Logger) *PgEmailLogRepository {
	return &PgEmailLogRepository{logger: logger.With("repo", "email_log")}
}

func (r *PgEmailLogRepository) RecordAttempts(ctx context.Context, q database.Querier, attempts []domain.DeliveryAttempt) error {
	query := `
		INSERT INTO email_log (post_id, recipient, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	now := time.Now().UTC()
	for _, attempt := range attempts {
		createdAt := attempt.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		var reason *string
		if attempt.Reason != "" {
			reason = &attempt.Reason
		}
		if _, err := q.Exec(ctx, query, attempt.PostID, attempt.Recipient, attempt.Status, reason, createdAt); err != nil {
			r.logger.ErrorContext(ctx, "Error recording delivery attempt",
				"error", err, "post_id", attempt.PostID, "recipient", attempt.Recipient)
			return err
		}
	}
	return nil
}
