package http

import "time"

// CreatePostRequest defines the body for creating a post. ScheduledFor is
// required only when status is SCHEDULED; the handler enforces that pairing.
type CreatePostRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=200"`
	Content      string     `json:"content" validate:"required"`
	Excerpt      string     `json:"excerpt,omitempty" validate:"omitempty,max=500"`
	Status       string     `json:"status" validate:"required,oneof=DRAFT SCHEDULED PUBLISHED"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// UpdatePostRequest defines the body for updating a post. The same shape as
// creation; the allowed transitions depend on the post's current status.
type UpdatePostRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=200"`
	Content      string     `json:"content" validate:"required"`
	Excerpt      string     `json:"excerpt,omitempty" validate:"omitempty,max=500"`
	Status       string     `json:"status" validate:"required,oneof=DRAFT SCHEDULED PUBLISHED"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// PostResponse is the public representation of a post.
type PostResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Excerpt      string     `json:"excerpt"`
	Slug         string     `json:"slug"`
	Status       string     `json:"status"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ListPostsResponse wraps a page of posts.
type ListPostsResponse struct {
	Posts  []PostResponse `json:"posts"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ScheduleStatusResponse describes the publish job backing a scheduled post.
type ScheduleStatusResponse struct {
	PostID    string     `json:"post_id"`
	JobKey    string     `json:"job_key"`
	Status    string     `json:"status"`
	FireAt    time.Time  `json:"fire_at"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	FiredAt   *time.Time `json:"fired_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SubscribeRequest defines the body for subscribing to the newsletter.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// SubscriberResponse is the public representation of a subscriber.
type SubscriberResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	IsActive     bool      `json:"is_active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// ListSubscribersResponse wraps the active subscriber list.
type ListSubscribersResponse struct {
	Subscribers []SubscriberResponse `json:"subscribers"`
	Total       int                  `json:"total"`
}

// GenericErrorResponse for API errors
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
