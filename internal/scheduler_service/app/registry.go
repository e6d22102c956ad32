package app

import (
	"context"
	"fmt"

	"github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// Handler processes a fired job. A nil return completes the job; a returned
// error schedules a retry, unless it wraps domain.ErrPermanent.
type Handler func(ctx context.Context, job *domain.Job) error

type registration struct {
	handler Handler
	backoff BackoffPolicy
}

// Registry maps job kinds to handlers and their retry policies. Registration
// happens once at worker startup, before the poller runs; lookups after that
// are read-only, so no locking is needed.
type Registry struct {
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register binds a handler and backoff policy to a job kind. Registering the
// same kind twice panics, since that is always a wiring bug.
func (r *Registry) Register(kind string, h Handler, b BackoffPolicy) {
	if _, exists := r.entries[kind]; exists {
		panic(fmt.Sprintf("scheduler: handler already registered for kind %q", kind))
	}
	r.entries[kind] = registration{handler: h, backoff: b}
}

func (r *Registry) lookup(kind string) (registration, bool) {
	reg, ok := r.entries[kind]
	return reg, ok
}
