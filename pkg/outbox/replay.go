package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Replayer 提供失败事件的人工重放能力
type Replayer struct {
	repo   *Repository
	logger *zap.Logger
}

func NewReplayer(repo *Repository, logger *zap.Logger) *Replayer {
	return &Replayer{repo: repo, logger: logger}
}

// ReplayByID 重放单个事件
func (r *Replayer) ReplayByID(ctx context.Context, eventID int64) error {
	event, err := r.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	if event.Status != "failed" {
		return fmt.Errorf("event %d is not in failed state (status=%s)", eventID, event.Status)
	}

	if err := r.repo.ReplayEvent(ctx, eventID); err != nil {
		return err
	}

	r.logger.Info("Event queued for replay",
		zap.Int64("event_id", eventID),
		zap.String("routing_key", event.RoutingKey),
	)
	return nil
}

// ReplayAllFailed 将所有失败事件重置为 pending
func (r *Replayer) ReplayAllFailed(ctx context.Context, limit int) (int, error) {
	events, err := r.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, event := range events {
		if err := r.repo.ReplayEvent(ctx, event.ID); err != nil {
			r.logger.Error("Failed to replay event",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		replayed++
	}

	r.logger.Info("Failed events queued for replay",
		zap.Int("replayed", replayed),
		zap.Int("total_failed", len(events)),
	)
	return replayed, nil
}
