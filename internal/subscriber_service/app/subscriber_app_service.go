package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

// Application provides subscriber management operations.
type Application struct {
	db     database.Querier
	repo   domain.SubscriberRepository
	logger *slog.Logger
}

func NewApplication(db database.Querier, repo domain.SubscriberRepository, logger *slog.Logger) *Application {
	return &Application{
		db:     db,
		repo:   repo,
		logger: logger.With("service", "subscriber_app"),
	}
}

// Subscribe adds an email to the newsletter. Subscribing an active email
// returns domain.ErrAlreadySubscribed; a previously deactivated email is
// reactivated in place. The returned bool reports whether a new record was
// created.
func (a *Application) Subscribe(ctx context.Context, email string, name string) (*domain.Subscriber, bool, error) {
	nullName := sql.NullString{String: name, Valid: name != ""}

	existing, err := a.repo.GetByEmail(ctx, a.db, email)
	switch {
	case err == nil:
		if existing.IsActive {
			return nil, false, domain.ErrAlreadySubscribed
		}
		sub, err := a.repo.Reactivate(ctx, a.db, email, nullName)
		if err != nil {
			return nil, false, err
		}
		a.logger.InfoContext(ctx, "Subscriber reactivated", "subscriber_id", sub.ID)
		return sub, false, nil

	case errors.Is(err, domain.ErrNotFound):
		sub := domain.NewSubscriber(uuid.New(), email, nullName)
		if err := a.repo.Create(ctx, a.db, sub); err != nil {
			return nil, false, err
		}
		a.logger.InfoContext(ctx, "Subscriber created", "subscriber_id", sub.ID)
		return sub, true, nil

	default:
		return nil, false, err
	}
}

// Unsubscribe deactivates an active subscriber.
func (a *Application) Unsubscribe(ctx context.Context, email string) error {
	return a.repo.Deactivate(ctx, a.db, email)
}

// ListActive returns active subscribers, newest first.
func (a *Application) ListActive(ctx context.Context) ([]*domain.Subscriber, error) {
	return a.repo.ListActive(ctx, a.db)
}
