package app

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

// MockSubscriberRepository is a mock implementation of domain.SubscriberRepository.
type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) Create(ctx context.Context, q database.Querier, sub *domain.Subscriber) error {
	args := m.Called(ctx, q, sub)
	return args.Error(0)
}

func (m *MockSubscriberRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*domain.Subscriber, error) {
	args := m.Called(ctx, q, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) Reactivate(ctx context.Context, q database.Querier, email string, name sql.NullString) (*domain.Subscriber, error) {
	args := m.Called(ctx, q, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) Deactivate(ctx context.Context, q database.Querier, email string) error {
	args := m.Called(ctx, q, email)
	return args.Error(0)
}

func (m *MockSubscriberRepository) ListActive(ctx context.Context, q database.Querier) ([]*domain.Subscriber, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) ActiveEmails(ctx context.Context, q database.Querier) ([]string, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func setupSubscriberTest() (*Application, *MockSubscriberRepository) {
	repo := new(MockSubscriberRepository)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewApplication(nil, repo, logger), repo
}

func TestSubscribe_NewEmailCreatesSubscriber(t *testing.T) {
	app, repo := setupSubscriberTest()

	repo.On("GetByEmail", mock.Anything, mock.Anything, "new@example.com").
		Return(nil, domain.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(s *domain.Subscriber) bool {
		return s.Email == "new@example.com" && s.IsActive && s.Name.String == "Ada"
	})).Return(nil).Once()

	sub, created, err := app.Subscribe(context.Background(), "new@example.com", "Ada")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new@example.com", sub.Email)
	repo.AssertExpectations(t)
}

func TestSubscribe_ActiveEmailIsRejected(t *testing.T) {
	app, repo := setupSubscriberTest()

	active := domain.NewSubscriber(uuid.New(), "taken@example.com", sql.NullString{})
	repo.On("GetByEmail", mock.Anything, mock.Anything, "taken@example.com").
		Return(active, nil).Once()

	_, _, err := app.Subscribe(context.Background(), "taken@example.com", "")
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
	repo.AssertNotCalled(t, "Create")
	repo.AssertNotCalled(t, "Reactivate")
}

func TestSubscribe_InactiveEmailIsReactivatedInPlace(t *testing.T) {
	app, repo := setupSubscriberTest()

	inactive := domain.NewSubscriber(uuid.New(), "back@example.com", sql.NullString{})
	inactive.IsActive = false
	reactivated := domain.NewSubscriber(inactive.ID, "back@example.com", sql.NullString{String: "Grace", Valid: true})

	repo.On("GetByEmail", mock.Anything, mock.Anything, "back@example.com").
		Return(inactive, nil).Once()
	repo.On("Reactivate", mock.Anything, mock.Anything, "back@example.com",
		sql.NullString{String: "Grace", Valid: true}).Return(reactivated, nil).Once()

	sub, created, err := app.Subscribe(context.Background(), "back@example.com", "Grace")
	require.NoError(t, err)
	assert.False(t, created, "reactivation reuses the existing record")
	assert.Equal(t, inactive.ID, sub.ID)
	repo.AssertNotCalled(t, "Create")
	repo.AssertExpectations(t)
}

func TestUnsubscribe_UnknownEmail(t *testing.T) {
	app, repo := setupSubscriberTest()

	repo.On("Deactivate", mock.Anything, mock.Anything, "ghost@example.com").
		Return(domain.ErrNotFound).Once()

	err := app.Unsubscribe(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
