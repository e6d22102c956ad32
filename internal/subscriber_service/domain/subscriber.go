package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates that no subscriber exists for the given email.
	ErrNotFound = errors.New("subscriber not found")
	// ErrAlreadySubscribed indicates that the email is already actively subscribed.
	ErrAlreadySubscribed = errors.New("already subscribed to the newsletter")
)

// Subscriber is a newsletter recipient. Email is unique for the lifetime of
// the record; unsubscribing deactivates in place and re-subscribing
// reactivates rather than creating a duplicate.
type Subscriber struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	Name         sql.NullString `json:"name,omitempty"`
	IsActive     bool           `json:"is_active"`
	SubscribedAt time.Time      `json:"subscribed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSubscriber creates an active subscriber.
func NewSubscriber(id uuid.UUID, email string, name sql.NullString) *Subscriber {
	now := time.Now().UTC()
	return &Subscriber{
		ID:           id,
		Email:        email,
		Name:         name,
		IsActive:     true,
		SubscribedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SubscriberRepository manages subscriber persistence.
type SubscriberRepository interface {
	Create(ctx context.Context, q database.Querier, sub *Subscriber) error
	GetByEmail(ctx context.Context, q database.Querier, email string) (*Subscriber, error)

	// Reactivate flips an inactive subscriber back on, refreshing
	// subscribed_at and optionally replacing the name.
	Reactivate(ctx context.Context, q database.Querier, email string, name sql.NullString) (*Subscriber, error)

	// Deactivate turns a subscriber off without deleting the record.
	Deactivate(ctx context.Context, q database.Querier, email string) error

	// ListActive returns active subscribers, newest first.
	ListActive(ctx context.Context, q database.Querier) ([]*Subscriber, error)

	// ActiveEmails returns the email snapshot used for fan-out.
	ActiveEmails(ctx context.Context, q database.Querier) ([]string, error)
}
