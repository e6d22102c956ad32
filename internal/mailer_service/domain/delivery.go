package domain

import (
	"context"
	"time"

	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/google/uuid"
)

// DeliveryJobKind selects the scheduler handler that executes an email send.
const DeliveryJobKind = "email.deliver"

// DeliveryJobKey derives the scheduler key for a post's fan-out job. A post is
// published exactly once, so one delivery job per post suffices; retries reuse
// the same job.
func DeliveryJobKey(postID uuid.UUID) string {
	return "email-" + postID.String()
}

// DeliveryJobPayload is the body of an email delivery job: the full recipient
// snapshot taken at dispatch time, plus the rendered subject and content.
type DeliveryJobPayload struct {
	PostID     uuid.UUID `json:"post_id"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Content    string    `json:"content"`
}

// AttemptStatus is the outcome of a single recipient delivery attempt.
type AttemptStatus string

const (
	AttemptSent   AttemptStatus = "SENT"
	AttemptFailed AttemptStatus = "FAILED"
)

// DeliveryAttempt records the outcome for one recipient of one send.
type DeliveryAttempt struct {
	PostID    uuid.UUID     `json:"post_id"`
	Recipient string        `json:"recipient"`
	Status    AttemptStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// EmailLogRepository persists per-recipient delivery attempts.
type EmailLogRepository interface {
	RecordAttempts(ctx context.Context, q database.Querier, attempts []DeliveryAttempt) error
}
