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

// ActivityCompletedHandler records an activity feed entry for the lead
// owner when an activity is completed.
type ActivityCompletedHandler struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

func NewActivityCompletedHandler(notificationRepo *repository.NotificationRepository, logger *zap.Logger) *ActivityCompletedHandler {
	return &ActivityCompletedHandler{notificationRepo: notificationRepo, logger: logger}
}

func (h *ActivityCompletedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)
	var p mqcontracts.ActivityCompletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal ActivityCompletedPayload", zap.Error(err))
		return err
	}

	log.Info("Handling activity.completed event",
		zap.Int("activity_id", p.ActivityID),
		zap.Int("lead_id", p.LeadID),
		zap.String("type_id", p.TypeID),
	)

	notification := &model.Notification{
		UserID:  p.UserID,
		Type:    "activity_completed",
		Content: fmt.Sprintf("Activity %d (%s) on lead %d completed: %s", p.ActivityID, p.TypeID, p.LeadID, p.Result),
	}
	if err := h.notificationRepo.Insert(ctx, notification); err != nil {
		retryable, errType := util.IsRetryableError(err)
		log.Error("Failed to insert completion notification",
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
	return nil
}
