package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "pipecrm/contracts/mq"
	"pipecrm/internal/model"
	"pipecrm/internal/repository"
	"pipecrm/pkg/logger"
	"pipecrm/pkg/util"
)

// ActivityOverdueHandler records a notification when an activity slips
// past its scheduled day. Deduped so repeated sweeps do not re-notify.
type ActivityOverdueHandler struct {
	notificationRepo *repository.NotificationRepository
	deduper          *util.Deduper
	logger           *zap.Logger
}

func NewActivityOverdueHandler(
	notificationRepo *repository.NotificationRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *ActivityOverdueHandler {
	return &ActivityOverdueHandler{
		notificationRepo: notificationRepo,
		deduper:          deduper,
		logger:           logger,
	}
}

func (h *ActivityOverdueHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)
	var p mqcontracts.ActivityOverduePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal ActivityOverduePayload", zap.Error(err))
		return err
	}

	if !h.deduper.AcquireOnce(ctx, "activity_overdue", p.ActivityID) {
		log.Debug("Duplicate activity.overdue event skipped",
			zap.Int("activity_id", p.ActivityID),
		)
		return nil
	}

	notification := &model.Notification{
		UserID:  p.UserID,
		Type:    "activity_overdue",
		Content: fmt.Sprintf("Activity %d on lead %d is overdue (scheduled %s)", p.ActivityID, p.LeadID, p.ScheduledAt.Format("2006-01-02")),
	}
	if err := h.notificationRepo.Insert(ctx, notification); err != nil {
		retryable, errType := util.IsRetryableError(err)
		log.Error("Failed to insert overdue notification",
			zap.Int("activity_id", p.ActivityID),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if !retryable {
			return nil
		}
		return err
	}

	log.Info("Recorded overdue notification",
		zap.Int("activity_id", p.ActivityID),
		zap.Int("user_id", p.UserID),
	)
	return nil
}
