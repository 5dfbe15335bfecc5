package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontracts "pipecrm/contracts/mq"
	"pipecrm/internal/repository"
	"pipecrm/pkg/mq"
)

// Orchestrator runs the periodic sweeps that do not belong to any HTTP
// request: currently the overdue activity scan.
type Orchestrator struct {
	activityRepo *repository.ActivityRepository
	publisher    *mq.Publisher
	logger       *zap.Logger
}

func NewOrchestrator(activityRepo *repository.ActivityRepository, publisher *mq.Publisher, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		activityRepo: activityRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// CheckOverdueActivities publishes activity.overdue for every pending
// activity scheduled before the start of today.
func (o *Orchestrator) CheckOverdueActivities(ctx context.Context) error {
	o.logger.Info("Checking for overdue activities...")

	overdue, err := o.activityRepo.ListOverdue(ctx, time.Now())
	if err != nil {
		o.logger.Error("Failed to list overdue activities", zap.Error(err))
		return err
	}

	if len(overdue) == 0 {
		o.logger.Debug("No overdue activities found")
		return nil
	}

	for _, a := range overdue {
		payload := mqcontracts.ActivityOverduePayload{
			ActivityID:  a.ActivityID,
			LeadID:      a.LeadID,
			UserID:      a.UserID,
			ScheduledAt: a.ScheduledAt,
		}
		if err := o.publisher.PublishWithContext(ctx, mqcontracts.KeyActivityOverdue, payload); err != nil {
			o.logger.Error("Failed to publish activity.overdue event",
				zap.Int("activity_id", a.ActivityID),
				zap.Error(err),
			)
			continue
		}
		o.logger.Info("Published activity.overdue event",
			zap.Int("activity_id", a.ActivityID),
			zap.Int("lead_id", a.LeadID),
		)
	}

	o.logger.Info("Overdue check completed",
		zap.Int("overdue_count", len(overdue)),
	)
	return nil
}

// Run executes the overdue sweep on a fixed interval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Orchestrator stopping")
			return
		case <-ticker.C:
			if err := o.CheckOverdueActivities(ctx); err != nil {
				o.logger.Error("Overdue sweep failed", zap.Error(err))
			}
		}
	}
}
