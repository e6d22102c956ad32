package emailprovider

import "context"

// Request is a newsletter send: one subject/content pair fanned out to the
// full recipient list.
type Request struct {
	PostID     string
	Recipients []string
	Subject    string
	Content    string
}

// RecipientFailure describes why one recipient could not be delivered to.
type RecipientFailure struct {
	Recipient string
	Reason    string
}

// Result is the aggregate outcome of a send. Success is true only when every
// recipient was delivered.
type Result struct {
	Success   bool
	MessageID string
	Delivered int
	Failures  []RecipientFailure
}

// Adapter is an outbound email transport.
type Adapter interface {
	Name() string
	Send(ctx context.Context, request Request) (*Result, error)
}
