package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	subscriberDomain "github.com/Balvajs/newsletter-demo/internal/subscriber_service/domain"
)

// SubscriberService is the slice of the subscriber application used by the
// HTTP layer.
type SubscriberService interface {
	Subscribe(ctx context.Context, email string, name string) (*subscriberDomain.Subscriber, bool, error)
	Unsubscribe(ctx context.Context, email string) error
	ListActive(ctx context.Context) ([]*subscriberDomain.Subscriber, error)
}

type SubscriberHandler struct {
	service  SubscriberService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewSubscriberHandler(service SubscriberService, logger *slog.Logger, validate *validator.Validate) *SubscriberHandler {
	return &SubscriberHandler{
		service:  service,
		logger:   logger,
		validate: validate,
	}
}

func (h *SubscriberHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reqDTO SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for Subscribe", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for Subscribe", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	subscriber, created, err := h.service.Subscribe(ctx, reqDTO.Email, reqDTO.Name)
	if err != nil {
		if errors.Is(err, subscriberDomain.ErrAlreadySubscribed) {
			h.logger.WarnContext(ctx, "Duplicate subscription attempt", "email", reqDTO.Email)
			writeJSONError(w, http.StatusConflict, "Email is already subscribed", "")
			return
		}
		h.logger.ErrorContext(ctx, "Subscribe failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, h.logger, status, toSubscriberResponse(subscriber))
}

func (h *SubscriberHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reqDTO SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for Unsubscribe", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := h.validate.VarCtx(ctx, reqDTO.Email, "required,email"); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for Unsubscribe", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	if err := h.service.Unsubscribe(ctx, reqDTO.Email); err != nil {
		if errors.Is(err, subscriberDomain.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "No active subscription for this email", "")
			return
		}
		h.logger.ErrorContext(ctx, "Unsubscribe failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriberHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribers, err := h.service.ListActive(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "ListSubscribers failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	resDTOs := make([]SubscriberResponse, len(subscribers))
	for i, subscriber := range subscribers {
		resDTOs[i] = toSubscriberResponse(subscriber)
	}

	writeJSON(w, h.logger, http.StatusOK, ListSubscribersResponse{
		Subscribers: resDTOs,
		Total:       len(resDTOs),
	})
}

func toSubscriberResponse(subscriber *subscriberDomain.Subscriber) SubscriberResponse {
	resDTO := SubscriberResponse{
		ID:           subscriber.ID.String(),
		Email:        subscriber.Email,
		IsActive:     subscriber.IsActive,
		SubscribedAt: subscriber.SubscribedAt,
	}
	if subscriber.Name.Valid {
		resDTO.Name = subscriber.Name.String
	}
	return resDTO
}

// RegisterRoutes registers subscriber routes on a Chi router.
func (h *SubscriberHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Subscribe)
	r.Get("/", h.ListSubscribers)
	r.Post("/unsubscribe", h.Unsubscribe)
}
