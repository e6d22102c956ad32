package domain

import "errors"

var (
	// ErrNotFound indicates that no post exists for the given ID.
	ErrNotFound = errors.New("post not found")
	// ErrStatusLocked indicates an attempt to change the status of a post that
	// is already scheduled or published.
	ErrStatusLocked = errors.New("published or scheduled posts cannot be changed")
	// ErrScheduleChange indicates an attempt to move the fire time of an
	// already scheduled post.
	ErrScheduleChange = errors.New("scheduled time cannot be changed once set")
	// ErrScheduledForRequired indicates a SCHEDULED request without a time.
	ErrScheduledForRequired = errors.New("scheduled_for is required for scheduled posts")
	// ErrInvalidStatus indicates an unknown requested status.
	ErrInvalidStatus = errors.New("invalid post status")
)
