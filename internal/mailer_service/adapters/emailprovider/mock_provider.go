package emailprovider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// MockProvider is a simulated email transport for development and testing.
// Each recipient independently fails with probability failRate, modelling
// transient bounces at a real provider.
type MockProvider struct {
	logger       *slog.Logger
	name         string
	failRate     float64 // chance per recipient to simulate a bounce (0.0 to 1.0)
	minLatencyMs int
	maxLatencyMs int
	rng          *rand.Rand
}

// NewMockProvider creates a MockProvider. rng may be nil, in which case a
// time-seeded source is used; tests inject a fixed seed for determinism.
func NewMockProvider(logger *slog.Logger, name string, failRate float64, minLatencyMs, maxLatencyMs int, rng *rand.Rand) *MockProvider {
	if name == "" {
		name = "mock-mailer"
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockProvider{
		logger:       logger.With("provider", name),
		name:         name,
		failRate:     failRate,
		minLatencyMs: minLatencyMs,
		maxLatencyMs: maxLatencyMs,
		rng:          rng,
	}
}

func (p *MockProvider) Name() string {
	return p.name
}

func (p *MockProvider) Send(ctx context.Context, request Request) (*Result, error) {
	if p.maxLatencyMs > p.minLatencyMs {
		latency := p.minLatencyMs + p.rng.Intn(p.maxLatencyMs-p.minLatencyMs+1)
		time.Sleep(time.Duration(latency) * time.Millisecond)
	}

	p.logger.InfoContext(ctx, "MockProvider: sending newsletter email",
		"post_id", request.PostID,
		"subject", request.Subject,
		"recipient_count", len(request.Recipients),
		"content_len", len(request.Content))

	result := &Result{
		MessageID: fmt.Sprintf("mock-%d-%s", time.Now().UnixMilli(), request.PostID),
	}
	for _, recipient := range request.Recipients {
		if p.rng.Float64() < p.failRate {
			result.Failures = append(result.Failures, RecipientFailure{
				Recipient: recipient,
				Reason:    "simulated bounce",
			})
			continue
		}
		result.Delivered++
	}
	result.Success = len(result.Failures) == 0

	if !result.Success {
		p.logger.WarnContext(ctx, "MockProvider: some recipients bounced (simulated)",
			"post_id", request.PostID, "failed", len(result.Failures), "delivered", result.Delivered)
	}
	return result, nil
}
