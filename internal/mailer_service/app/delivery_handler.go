package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Balvajs/newsletter-demo/internal/mailer_service/adapters/emailprovider"
	"github.com/Balvajs/newsletter-demo/internal/mailer_service/domain"
	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
)

// DeliveryService executes email delivery jobs against the configured
// transport and records per-recipient outcomes.
type DeliveryService struct {
	db       database.Querier
	provider emailprovider.Adapter
	emailLog domain.EmailLogRepository
	logger   *slog.Logger
}

func NewDeliveryService(db database.Querier, provider emailprovider.Adapter, emailLog domain.EmailLogRepository, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{
		db:       db,
		provider: provider,
		emailLog: emailLog,
		logger:   logger.With("service", "email_delivery"),
	}
}

// HandleDeliveryJob is the scheduler callback for domain.DeliveryJobKind.
// The job succeeds only when every recipient was delivered; a partial failure
// returns an error so the poller retries the whole send with backoff.
// Delivery outcomes never feed back into publication state.
func (s *DeliveryService) HandleDeliveryJob(ctx context.Context, job *schedDomain.Job) error {
	var payload domain.DeliveryJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: decode delivery payload: %v", schedDomain.ErrPermanent, err)
	}

	logger := s.logger.With("post_id", payload.PostID, "recipient_count", len(payload.Recipients))
	logger.InfoContext(ctx, "Processing email delivery job", "provider", s.provider.Name())

	result, err := s.provider.Send(ctx, emailprovider.Request{
		PostID:     payload.PostID.String(),
		Recipients: payload.Recipients,
		Subject:    payload.Subject,
		Content:    payload.Content,
	})
	if err != nil {
		return fmt.Errorf("send newsletter email: %w", err)
	}

	s.recordAttempts(ctx, payload, result)
	recipientsCounter.WithLabelValues("sent").Add(float64(result.Delivered))
	recipientsCounter.WithLabelValues("failed").Add(float64(len(result.Failures)))

	if !result.Success {
		deliveryJobsCounter.WithLabelValues("partial_failure").Inc()
		logger.WarnContext(ctx, "Email delivery incomplete",
			"message_id", result.MessageID, "delivered", result.Delivered, "failed", len(result.Failures))
		return fmt.Errorf("delivery incomplete: %d of %d recipients failed",
			len(result.Failures), len(payload.Recipients))
	}

	deliveryJobsCounter.WithLabelValues("success").Inc()
	logger.InfoContext(ctx, "Email delivered to all recipients", "message_id", result.MessageID)
	return nil
}

// recordAttempts persists the per-recipient audit trail. Failure to record is
// logged but does not fail the job: the send already happened and retrying it
// for bookkeeping would duplicate emails.
func (s *DeliveryService) recordAttempts(ctx context.Context, payload domain.DeliveryJobPayload, result *emailprovider.Result) {
	failed := make(map[string]string, len(result.Failures))
	for _, failure := range result.Failures {
		failed[failure.Recipient] = failure.Reason
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(payload.Recipients))
	for _, recipient := range payload.Recipients {
		attempt := domain.DeliveryAttempt{
			PostID:    payload.PostID,
			Recipient: recipient,
			Status:    domain.AttemptSent,
		}
		if reason, ok := failed[recipient]; ok {
			attempt.Status = domain.AttemptFailed
			attempt.Reason = reason
		}
		attempts = append(attempts, attempt)
	}

	if err := s.emailLog.RecordAttempts(ctx, s.db, attempts); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record delivery attempts", "error", err, "post_id", payload.PostID)
	}
}
