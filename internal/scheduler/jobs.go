package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// NotificationReconcileJob re-sends request notifications for pending
// memberships. Notification keys are idempotent so rows that were already
// delivered are left untouched.
func (s *Scheduler) NotificationReconcileJob(ctx context.Context) error {
	run := currentRun(ctx)

	count, err := s.memberships.ReconcileNotifications(ctx, s.cfg.BatchSize)
	if err != nil {
		run.fail("reconcile notifications failed", err)
		return err
	}
	run.addProcessed(count)
	return nil
}

// RevokedTokenPurgeJob drops deny-list entries for tokens that can no longer
// be presented because they have expired.
func (s *Scheduler) RevokedTokenPurgeJob(ctx context.Context) error {
	run := currentRun(ctx)

	purged, err := s.revokedTokens.PurgeExpired(ctx, s.clock.Now(), s.cfg.BatchSize)
	if err != nil {
		run.fail("purge revoked tokens failed", err)
		return err
	}
	run.addProcessed(int(purged))
	if purged > 0 {
		run.logger().Debug("revoked tokens purged", zap.Int64("count", purged))
	}
	return nil
}
