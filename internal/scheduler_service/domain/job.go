package domain

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a scheduled job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing" // picked up by a worker
	StatusRetry      JobStatus = "retry"      // failed, waiting for the next attempt
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed" // exhausted retries or permanently failed
	StatusCancelled  JobStatus = "cancelled"
)

// Live reports whether a job in this status still owns its key. Only one live
// job may exist per key; finished jobs are retained as history.
func (s JobStatus) Live() bool {
	return s == StatusPending || s == StatusProcessing || s == StatusRetry
}

// Job is a callback scheduled to run at or after FireAt, exactly once.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Key        string          `json:"key"`  // deterministic per owner, e.g. "publish-<postID>"
	Kind       string          `json:"kind"` // selects the handler, e.g. "post.publish"
	Payload    json.RawMessage `json:"payload"`
	FireAt     time.Time       `json:"fire_at"`
	Status     JobStatus       `json:"status"`
	Attempts   int             `json:"attempts"`
	LastError  sql.NullString  `json:"last_error,omitempty"`
	FiredAt    sql.NullTime    `json:"fired_at,omitempty"`
	FinishedAt sql.NullTime    `json:"finished_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewJob creates a pending job. The payload must already be marshaled JSON.
func NewJob(id uuid.UUID, key, kind string, payload json.RawMessage, fireAt time.Time) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Key:       key,
		Kind:      kind,
		Payload:   payload,
		FireAt:    fireAt.UTC(),
		Status:    StatusPending,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SubjectJobEnqueued is published whenever a due-now job is enqueued so
// pollers can wake up instead of waiting for their next tick.
const SubjectJobEnqueued = "scheduler.jobs.enqueued.v1"
