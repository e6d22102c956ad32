package domain

import "errors"

var (
	// ErrNotFound indicates that no job exists for the given key or ID.
	ErrNotFound = errors.New("scheduled job not found")
	// ErrFireTimeNotFuture indicates that the requested fire time is not strictly in the future.
	ErrFireTimeNotFuture = errors.New("fire time must be strictly in the future")
	// ErrDuplicateJob indicates that a live job already exists for the key.
	ErrDuplicateJob = errors.New("a live job already exists for this key")
	// ErrNoDueJobs indicates that no jobs are currently due for processing.
	ErrNoDueJobs = errors.New("no due jobs found")
	// ErrPermanent marks a handler failure that must not be retried.
	ErrPermanent = errors.New("permanent job failure")
)
