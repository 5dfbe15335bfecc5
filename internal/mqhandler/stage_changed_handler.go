package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "pipecrm/contracts/mq"
	"pipecrm/internal/model"
	"pipecrm/internal/repository"
	"pipecrm/internal/service"
	"pipecrm/pkg/logger"
	"pipecrm/pkg/mq"
	"pipecrm/pkg/util"
)

const maxWebhookRetries int64 = 5

// stageChangedEventKey identifies one stage transition of one lead.
func stageChangedEventKey(p mqcontracts.LeadStageChangedPayload) string {
	return fmt.Sprintf("%d:%d", p.LeadID, p.ChangedAt.UnixNano())
}

// StageChangedHandler reacts to lead.stage_changed events: it records a
// notification for the lead owner, and fires the external webhook when
// the lead reached a terminal stage.
type StageChangedHandler struct {
	notificationRepo *repository.NotificationRepository
	notifier         *service.WebhookNotifier
	publisher        *mq.Publisher
	deduper          *util.Deduper
	retries          *util.RetryCounter
	logger           *zap.Logger
}

func NewStageChangedHandler(
	notificationRepo *repository.NotificationRepository,
	notifier *service.WebhookNotifier,
	publisher *mq.Publisher,
	deduper *util.Deduper,
	retries *util.RetryCounter,
	logger *zap.Logger,
) *StageChangedHandler {
	return &StageChangedHandler{
		notificationRepo: notificationRepo,
		notifier:         notifier,
		publisher:        publisher,
		deduper:          deduper,
		retries:          retries,
		logger:           logger,
	}
}

func (h *StageChangedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)
	var p mqcontracts.LeadStageChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal LeadStageChangedPayload", zap.Error(err))
		return err
	}

	log.Info("Handling lead.stage_changed event",
		zap.Int("lead_id", p.LeadID),
		zap.String("from_stage_id", p.FromStageID),
		zap.String("to_stage_id", p.ToStageID),
		zap.Bool("is_terminal", p.IsTerminal),
	)

	// A lead changes stage many times over its life, so the dedup key
	// carries the transition identity, not just the lead.
	if !h.deduper.AcquireOnceKey(ctx, "stage_changed", stageChangedEventKey(p)) {
		log.Info("Duplicate lead.stage_changed event skipped",
			zap.Int("lead_id", p.LeadID),
		)
		return nil
	}

	notification := &model.Notification{
		UserID:  p.UserID,
		Type:    "stage_changed",
		Content: fmt.Sprintf("Lead %d moved from %s to %s", p.LeadID, p.FromStageID, p.ToStageID),
	}
	if err := h.notificationRepo.Insert(ctx, notification); err != nil {
		retryable, errType := util.IsRetryableError(err)
		log.Error("Failed to insert stage change notification",
			zap.Int("lead_id", p.LeadID),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if !retryable {
			return nil
		}
		return err
	}

	if !p.IsTerminal {
		return nil
	}

	// 终态阶段触发外部 webhook
	if err := h.notifier.Notify(ctx, p); err != nil {
		retryKey := util.FormatRetryKey("stage_changed_webhook", p.LeadID)
		count, _ := h.retries.IncrementAndGet(ctx, retryKey)
		retryable, errType := util.IsRetryableError(err)
		log.Error("Webhook notify failed for terminal stage",
			zap.Int("lead_id", p.LeadID),
			zap.Int64("retry_count", count),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)

		if !util.ShouldRetry(count, maxWebhookRetries, retryable) {
			// 放入死信队列，不再重试
			if dlqErr := h.publisher.PublishToDLQ(mqcontracts.KeyLeadStageChanged, raw, err.Error()); dlqErr != nil {
				log.Error("Failed to publish to DLQ",
					zap.Int("lead_id", p.LeadID),
					zap.Error(dlqErr),
				)
				return err
			}
			_ = h.retries.Reset(ctx, retryKey)
			return nil
		}
		return err
	}

	log.Info("Terminal stage webhook delivered",
		zap.Int("lead_id", p.LeadID),
		zap.String("to_stage_id", p.ToStageID),
	)
	return nil
}
