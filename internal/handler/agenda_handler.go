package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipecrm/internal/model"
	"pipecrm/internal/schedule"
)

// AgendaSource lists all activities owned by a user across their leads.
type AgendaSource interface {
	ListByUser(ctx context.Context, userID int) ([]model.Activity, error)
}

type AgendaHandler struct {
	activities AgendaSource
	logger     *zap.Logger
	now        func() time.Time
}

func NewAgendaHandler(activities AgendaSource, logger *zap.Logger) *AgendaHandler {
	return &AgendaHandler{activities: activities, logger: logger, now: time.Now}
}

// WithClock overrides the reference clock, for tests.
func (h *AgendaHandler) WithClock(now func() time.Time) *AgendaHandler {
	h.now = now
	return h
}

// GetAgenda handles GET /agenda
func (h *AgendaHandler) GetAgenda(c *gin.Context) {
	userID := c.GetInt("user_id")

	activities, err := h.activities.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("GetAgenda: failed to fetch activities",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch activities"})
		return
	}

	// The agenda only shows work still to be done. Completed activities
	// stay in the repository result for other consumers.
	pending := make([]model.Activity, 0, len(activities))
	for _, a := range activities {
		if !a.IsCompleted {
			pending = append(pending, a)
		}
	}

	ref := h.now()
	buckets := schedule.Group(pending, ref)
	stats := schedule.GroupStats(pending, ref)

	c.JSON(http.StatusOK, gin.H{
		"overdue":  buckets.Overdue,
		"today":    buckets.Today,
		"tomorrow": buckets.Tomorrow,
		"upcoming": buckets.Upcoming,
		"stats":    stats,
	})
}
