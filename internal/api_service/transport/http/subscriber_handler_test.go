package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	subscriberDomain "github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

// MockSubscriberService is a mock implementation of SubscriberService.
type MockSubscriberService struct {
	mock.Mock
}

func (m *MockSubscriberService) Subscribe(ctx context.Context, email string, name string) (*subscriberDomain.Subscriber, bool, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*subscriberDomain.Subscriber), args.Bool(1), args.Error(2)
}

func (m *MockSubscriberService) Unsubscribe(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockSubscriberService) ListActive(ctx context.Context) ([]*subscriberDomain.Subscriber, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscriberDomain.Subscriber), args.Error(1)
}

func setupSubscriberHandlerTest() (*MockSubscriberService, *chi.Mux) {
	service := new(MockSubscriberService)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	handler := NewSubscriberHandler(service, logger, validator.New())

	router := chi.NewRouter()
	router.Route("/v1/subscribers", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return service, router
}

func TestSubscriberHandler_Subscribe_New(t *testing.T) {
	service, router := setupSubscriberHandlerTest()

	sub := subscriberDomain.NewSubscriber(uuid.New(), "ada@example.com", sql.NullString{String: "Ada", Valid: true})
	service.On("Subscribe", mock.Anything, "ada@example.com", "Ada").Return(sub, true, nil).Once()

	rec := performJSON(t, router, http.MethodPost, "/v1/subscribers", SubscribeRequest{
		Email: "ada@example.com",
		Name:  "Ada",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resDTO SubscriberResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resDTO))
	assert.Equal(t, "ada@example.com", resDTO.Email)
	assert.Equal(t, "Ada", resDTO.Name)
	assert.True(t, resDTO.IsActive)
	service.AssertExpectations(t)
}

func TestSubscriberHandler_Subscribe_Reactivated(t *testing.T) {
	service, router := setupSubscriberHandlerTest()

	sub := subscriberDomain.NewSubscriber(uuid.New(), "back@example.com", sql.NullString{})
	service.On("Subscribe", mock.Anything, "back@example.com", "").Return(sub, false, nil).Once()

	rec := performJSON(t, router, http.MethodPost, "/v1/subscribers", SubscribeRequest{
		Email: "back@example.com",
	})

	assert.Equal(t, http.StatusOK, rec.Code, "reactivation reuses the record, so no 201")
}

func TestSubscriberHandler_Subscribe_Duplicate(t *testing.T) {
	service, router := setupSubscriberHandlerTest()

	service.On("Subscribe", mock.Anything, "taken@example.com", "").
		Return(nil, false, subscriberDomain.ErrAlreadySubscribed).Once()

	rec := performJSON(t, router, http.MethodPost, "/v1/subscribers", SubscribeRequest{
		Email: "taken@example.com",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubscriberHandler_Subscribe_InvalidEmail(t *testing.T) {
	service, router := setupSubscriberHandlerTest()

	rec := performJSON(t, router, http.MethodPost, "/v1/subscribers", SubscribeRequest{
		Email: "not-an-email",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "Subscribe")
}

func TestSubscriberHandler_Unsubscribe(t *testing.T) {
	service, router := setupSubscriberHandlerTest()

	t.Run("Active", func(t *testing.T) {
		service.On("Unsubscribe", mock.Anything, "ada@example.com").Return(nil).Once()

		rec := performJSON(t, router, http.MethodPost, "/v1/subscribers/unsubscribe", SubscribeRequest{
			Email: "ada@example.com",
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Unknown", func(t *testing.T) {
		service.On("Unsubscribe", mock.Anything, "ghost@example.com").
			Return(subscriberDomain.ErrNotFound).Once()

		rec := performJSON(t, router, http.MethodPost, "/v1/subscribers/unsubscribe", SubscribeRequest{
			Email: "ghost@example.com",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubscriberHandler_ListSubscribers(t *testing.T) {
	service, router := setupSubscriberHandlerTest()

	subs := []*subscriberDomain.Subscriber{
		subscriberDomain.NewSubscriber(uuid.New(), "a@example.com", sql.NullString{}),
		subscriberDomain.NewSubscriber(uuid.New(), "b@example.com", sql.NullString{}),
	}
	service.On("ListActive", mock.Anything).Return(subs, nil).Once()

	rec := performJSON(t, router, http.MethodGet, "/v1/subscribers", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resDTO ListSubscribersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resDTO))
	assert.Equal(t, 2, resDTO.Total)
	require.Len(t, resDTO.Subscribers, 2)
}
