package domain

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "DRAFT"
	StatusScheduled PostStatus = "SCHEDULED"
	StatusPublished PostStatus = "PUBLISHED"
)

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusScheduled || s == StatusPublished
}

// Post is a newsletter post.
//
// ScheduledFor is set iff Status is SCHEDULED, PublishedAt is set iff Status
// is PUBLISHED, and once a post is SCHEDULED or PUBLISHED its status never
// changes again (content stays editable).
type Post struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Excerpt      string     `json:"excerpt"`
	Slug         string     `json:"slug"`
	Status       PostStatus `json:"status"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const excerptLength = 200

// DefaultExcerpt derives the excerpt used when the caller supplies none: the
// first excerptLength characters of the content. Truncation counts runes, not
// bytes, so multi-byte content is never cut mid-character.
func DefaultExcerpt(content string) string {
	runes := 0
	for i := range content {
		if runes == excerptLength {
			return content[:i]
		}
		runes++
	}
	return content
}

// NewPost creates a draft-shaped post skeleton; the caller fills in
// status-specific fields. The slug is derived from the title here, at creation,
// and never regenerated on later title edits.
func NewPost(id uuid.UUID, title, content, excerpt string) *Post {
	if excerpt == "" {
		excerpt = DefaultExcerpt(content)
	}
	now := time.Now().UTC()
	return &Post{
		ID:        id,
		Title:     title,
		Content:   content,
		Excerpt:   excerpt,
		Slug:      GenerateSlug(title),
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PublishJobKind selects the scheduler handler that flips a scheduled post to
// published and triggers the email fan-out.
const PublishJobKind = "post.publish"

// PublishJobKey derives the scheduler key owning a post's publish job.
// One post owns at most one live publish job.
func PublishJobKey(postID uuid.UUID) string {
	return "publish-" + postID.String()
}

// PublishJobPayload is the payload carried by a publish job.
type PublishJobPayload struct {
	PostID uuid.UUID `json:"post_id"`
}

// SubjectPostPublished announces a publication to interested consumers.
const SubjectPostPublished = "posts.published.v1"

// PostPublishedEvent is the body published on SubjectPostPublished.
type PostPublishedEvent struct {
	PostID      uuid.UUID `json:"post_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}
