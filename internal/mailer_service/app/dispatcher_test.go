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

	"github.com/Balvajs/newsletter-demo/internal/mailer_service/domain"
	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	postDomain "github.com/Balvajs/newsletter-demo/internal/post_service/domain"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
	subscriberDomain "github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

// MockSubscriberRepository is a mock implementation of the subscriber repository.
type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) Create(ctx context.Context, q database.Querier, sub *subscriberDomain.Subscriber) error {
	args := m.Called(ctx, q, sub)
	return args.Error(0)
}

func (m *MockSubscriberRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*subscriberDomain.Subscriber, error) {
	args := m.Called(ctx, q, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscriberDomain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) Reactivate(ctx context.Context, q database.Querier, email string, name sql.NullString) (*subscriberDomain.Subscriber, error) {
	args := m.Called(ctx, q, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscriberDomain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) Deactivate(ctx context.Context, q database.Querier, email string) error {
	args := m.Called(ctx, q, email)
	return args.Error(0)
}

func (m *MockSubscriberRepository) ListActive(ctx context.Context, q database.Querier) ([]*subscriberDomain.Subscriber, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscriberDomain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) ActiveEmails(ctx context.Context, q database.Querier) ([]string, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockJobEnqueuer is a mock implementation of JobEnqueuer.
type MockJobEnqueuer struct {
	mock.Mock
}

func (m *MockJobEnqueuer) EnqueueNowTx(ctx context.Context, q database.Querier, key, kind string, payload any) (*schedDomain.Job, error) {
	args := m.Called(ctx, q, key, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedDomain.Job), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func publishedPost() *postDomain.Post {
	post := postDomain.NewPost(uuid.New(), "Big News", "the full story", "")
	post.Status = postDomain.StatusPublished
	return post
}

func TestDispatcher_EnqueuesOneJobWithSnapshot(t *testing.T) {
	subscribers := new(MockSubscriberRepository)
	enqueuer := new(MockJobEnqueuer)
	dispatcher := NewDispatcher(subscribers, enqueuer, testLogger())

	post := publishedPost()
	recipients := []string{"a@example.com", "b@example.com", "c@example.com"}

	subscribers.On("ActiveEmails", mock.Anything, mock.Anything).Return(recipients, nil).Once()
	enqueuer.On("EnqueueNowTx", mock.Anything, mock.Anything,
		domain.DeliveryJobKey(post.ID), domain.DeliveryJobKind,
		mock.MatchedBy(func(payload any) bool {
			p, ok := payload.(domain.DeliveryJobPayload)
			return ok && p.PostID == post.ID &&
				len(p.Recipients) == 3 &&
				p.Subject == "New post: Big News" &&
				p.Content == post.Content
		})).Return(&schedDomain.Job{}, nil).Once()

	err := dispatcher.Dispatch(context.Background(), nil, post)
	require.NoError(t, err)
	subscribers.AssertExpectations(t)
	enqueuer.AssertExpectations(t)
}

func TestDispatcher_NoActiveSubscribersIsNoOp(t *testing.T) {
	subscribers := new(MockSubscriberRepository)
	enqueuer := new(MockJobEnqueuer)
	dispatcher := NewDispatcher(subscribers, enqueuer, testLogger())

	subscribers.On("ActiveEmails", mock.Anything, mock.Anything).Return([]string{}, nil).Once()

	err := dispatcher.Dispatch(context.Background(), nil, publishedPost())
	assert.NoError(t, err)
	enqueuer.AssertNotCalled(t, "EnqueueNowTx")
}

func TestDispatcher_SnapshotFailurePropagates(t *testing.T) {
	subscribers := new(MockSubscriberRepository)
	enqueuer := new(MockJobEnqueuer)
	dispatcher := NewDispatcher(subscribers, enqueuer, testLogger())

	subscribers.On("ActiveEmails", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	err := dispatcher.Dispatch(context.Background(), nil, publishedPost())
	assert.Error(t, err)
	enqueuer.AssertNotCalled(t, "EnqueueNowTx")
}
