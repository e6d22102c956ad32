package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	postApp "github.com/Balvajs/newsletter-demo/internal/post_service/app"
	postDomain "github.com/Balvajs/newsletter-demo/internal/post_service/domain"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// PostService is the slice of the post application used by the HTTP layer.
type PostService interface {
	CreatePost(ctx context.Context, in postApp.PostInput) (*postDomain.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, in postApp.PostInput) (*postDomain.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	GetPost(ctx context.Context, id uuid.UUID) (*postDomain.Post, error)
	ListPosts(ctx context.Context, status *postDomain.PostStatus, limit, offset int) ([]*postDomain.Post, error)
	ScheduleStatus(ctx context.Context, id uuid.UUID) (*schedDomain.Job, error)
}

type PostHandler struct {
	service  PostService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewPostHandler(service PostService, logger *slog.Logger, validate *validator.Validate) *PostHandler {
	return &PostHandler{
		service:  service,
		logger:   logger,
		validate: validate,
	}
}

// mapDomainErrorToHTTPStatus translates domain errors into HTTP responses.
// Unrecognized errors become a generic 500 so internals never leak.
func mapDomainErrorToHTTPStatus(w http.ResponseWriter, logger *slog.Logger, err error, operation string, resourceID string) {
	if err == nil {
		return
	}

	logEntry := logger.With("operation", operation, "resource_id", resourceID, "error", err)

	switch {
	case errors.Is(err, postDomain.ErrNotFound):
		logEntry.Warn("Resource not found")
		writeJSONError(w, http.StatusNotFound, "Post not found", "")
	case errors.Is(err, postDomain.ErrStatusLocked):
		logEntry.Warn("Rejected update of locked post")
		writeJSONError(w, http.StatusConflict, "Post cannot be modified in its current status", err.Error())
	case errors.Is(err, postDomain.ErrScheduleChange):
		logEntry.Warn("Rejected schedule change")
		writeJSONError(w, http.StatusConflict, "Scheduled time of a scheduled post cannot be changed", "")
	case errors.Is(err, postDomain.ErrScheduledForRequired):
		logEntry.Warn("Missing scheduled_for")
		writeJSONError(w, http.StatusBadRequest, "scheduled_for is required for SCHEDULED posts", "")
	case errors.Is(err, postDomain.ErrInvalidStatus):
		logEntry.Warn("Invalid status value")
		writeJSONError(w, http.StatusBadRequest, "Invalid post status", "")
	case errors.Is(err, schedDomain.ErrFireTimeNotFuture):
		logEntry.Warn("Schedule time not in the future")
		writeJSONError(w, http.StatusBadRequest, "scheduled_for must be in the future", "")
	case errors.Is(err, schedDomain.ErrDuplicateJob):
		logEntry.Warn("Duplicate publish job")
		writeJSONError(w, http.StatusConflict, "Post already has a pending publish job", "")
	case errors.Is(err, schedDomain.ErrNotFound):
		logEntry.Warn("Schedule not found")
		writeJSONError(w, http.StatusNotFound, "No schedule found for post", "")
	default:
		logEntry.Error("Unhandled error")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(GenericErrorResponse{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reqDTO CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for CreatePost", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for CreatePost", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	if reqDTO.Status == string(postDomain.StatusScheduled) && reqDTO.ScheduledFor == nil {
		h.logger.WarnContext(ctx, "scheduled_for missing for SCHEDULED create")
		writeJSONError(w, http.StatusBadRequest, "scheduled_for is required for SCHEDULED posts", "")
		return
	}

	post, err := h.service.CreatePost(ctx, postApp.PostInput{
		Title:        reqDTO.Title,
		Content:      reqDTO.Content,
		Excerpt:      reqDTO.Excerpt,
		Status:       postDomain.PostStatus(reqDTO.Status),
		ScheduledFor: reqDTO.ScheduledFor,
	})
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "CreatePost", "")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, toPostResponse(post))
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID, ok := h.parsePostID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(ctx, postID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "GetPost", postID.String())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toPostResponse(post))
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queryParams := r.URL.Query()

	limit, _ := strconv.Atoi(queryParams.Get("limit"))
	offset, _ := strconv.Atoi(queryParams.Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var statusFilter *postDomain.PostStatus
	if raw := queryParams.Get("status"); raw != "" {
		status := postDomain.PostStatus(raw)
		if !status.Valid() {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status filter: %s", raw), "")
			return
		}
		statusFilter = &status
	}

	posts, err := h.service.ListPosts(ctx, statusFilter, limit, offset)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "ListPosts", "")
		return
	}

	resDTOs := make([]PostResponse, len(posts))
	for i, post := range posts {
		resDTOs[i] = toPostResponse(post)
	}

	writeJSON(w, h.logger, http.StatusOK, ListPostsResponse{
		Posts:  resDTOs,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID, ok := h.parsePostID(w, r)
	if !ok {
		return
	}

	var reqDTO UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for UpdatePost", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for UpdatePost", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	if reqDTO.Status == string(postDomain.StatusScheduled) && reqDTO.ScheduledFor == nil {
		h.logger.WarnContext(ctx, "scheduled_for missing for SCHEDULED update", "post_id", postID)
		writeJSONError(w, http.StatusBadRequest, "scheduled_for is required for SCHEDULED posts", "")
		return
	}

	post, err := h.service.UpdatePost(ctx, postID, postApp.PostInput{
		Title:        reqDTO.Title,
		Content:      reqDTO.Content,
		Excerpt:      reqDTO.Excerpt,
		Status:       postDomain.PostStatus(reqDTO.Status),
		ScheduledFor: reqDTO.ScheduledFor,
	})
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "UpdatePost", postID.String())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toPostResponse(post))
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID, ok := h.parsePostID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(ctx, postID); err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "DeletePost", postID.String())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) GetScheduleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID, ok := h.parsePostID(w, r)
	if !ok {
		return
	}

	job, err := h.service.ScheduleStatus(ctx, postID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "GetScheduleStatus", postID.String())
		return
	}

	resDTO := ScheduleStatusResponse{
		PostID:    postID.String(),
		JobKey:    job.Key,
		Status:    string(job.Status),
		FireAt:    job.FireAt,
		Attempts:  job.Attempts,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.LastError.Valid {
		resDTO.LastError = job.LastError.String
	}
	if job.FiredAt.Valid {
		firedAt := job.FiredAt.Time
		resDTO.FiredAt = &firedAt
	}

	writeJSON(w, h.logger, http.StatusOK, resDTO)
}

func (h *PostHandler) parsePostID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "postID")
	postID, err := uuid.Parse(raw)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid post ID in path", "post_id", raw)
		writeJSONError(w, http.StatusBadRequest, "Invalid post ID", "")
		return uuid.Nil, false
	}
	return postID, true
}

func toPostResponse(post *postDomain.Post) PostResponse {
	return PostResponse{
		ID:           post.ID.String(),
		Title:        post.Title,
		Content:      post.Content,
		Excerpt:      post.Excerpt,
		Slug:         post.Slug,
		Status:       string(post.Status),
		PublishedAt:  post.PublishedAt,
		ScheduledFor: post.ScheduledFor,
		CreatedAt:    post.CreatedAt,
		UpdatedAt:    post.UpdatedAt,
	}
}

// RegisterRoutes registers post routes on a Chi router.
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.CreatePost)
	r.Get("/", h.ListPosts)
	r.Get("/{postID}", h.GetPost)
	r.Put("/{postID}", h.UpdatePost)
	r.Delete("/{postID}", h.DeletePost)
	r.Get("/{postID}/schedule", h.GetScheduleStatus)
}
