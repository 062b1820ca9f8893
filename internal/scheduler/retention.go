package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// CleanupWebhookEventsJob deletes stored Stripe events past the retention window.
func (s *Scheduler) CleanupWebhookEventsJob(ctx context.Context) error {
	run := s.startJob("cleanup_webhook_events")
	defer s.finishJob(run)

	retentionDays := s.cfg.WebhookRetentionDays
	if retentionDays <= 0 {
		s.log.Info("webhook retention disabled", zap.Int("days", retentionDays))
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)
	s.log.Info("cleaning up webhook events", zap.Time("cutoff", cutoff))

	deleted, err := s.payments.CleanupEvents(ctx, cutoff)
	if err != nil {
		s.logJobError(run, err)
		return err
	}

	run.AddProcessed(int(deleted))
	return nil
}
