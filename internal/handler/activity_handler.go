package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipecrm/internal/catalog"
	"pipecrm/internal/lifecycle"
	"pipecrm/internal/model"
	"pipecrm/pkg/metrics"
)

// ActivitySource is the slice of the activity repository the handler
// needs beyond what the lifecycle engine already drives.
type ActivitySource interface {
	ListByLead(ctx context.Context, leadID int) ([]model.Activity, error)
	Create(ctx context.Context, a model.Activity) (model.Activity, error)
}

type ActivityHandler struct {
	lifecycle  *lifecycle.Lifecycle
	types      *catalog.ActivityTypeCatalog
	activities ActivitySource
	logger     *zap.Logger
}

func NewActivityHandler(lc *lifecycle.Lifecycle, types *catalog.ActivityTypeCatalog, activities ActivitySource, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{lifecycle: lc, types: types, activities: activities, logger: logger}
}

// ListByLead handles GET /leads/:id/activities
func (h *ActivityHandler) ListByLead(c *gin.Context) {
	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	activities, err := h.activities.ListByLead(c.Request.Context(), leadID)
	if err != nil {
		h.logger.Error("ListByLead: failed to fetch activities",
			zap.Int("lead_id", leadID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch activities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

type createActivityRequest struct {
	LeadID      int             `json:"lead_id"`
	TypeID      string          `json:"type_id"`
	Description string          `json:"description"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
	Metadata    json.RawMessage `json:"metadata"`
}

// Create handles POST /activities
func (h *ActivityHandler) Create(c *gin.Context) {
	var req createActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.LeadID == 0 || req.TypeID == "" || req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lead_id, type_id and description are required"})
		return
	}
	if _, ok := h.types.Lookup(req.TypeID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown activity type"})
		return
	}

	created, err := h.activities.Create(c.Request.Context(), model.Activity{
		LeadID:      req.LeadID,
		TypeID:      req.TypeID,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.logger.Error("Create: failed to insert activity",
			zap.Int("lead_id", req.LeadID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create activity"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"activity": created})
}

// Complete handles POST /activities/:id/complete
func (h *ActivityHandler) Complete(c *gin.Context) {
	activityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}

	var fb lifecycle.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	activities, err := h.lifecycle.Complete(c.Request.Context(), activityID, fb)
	switch {
	case errors.Is(err, lifecycle.ErrMissingResult),
		errors.Is(err, lifecycle.ErrMissingChainFields),
		errors.Is(err, lifecycle.ErrUnknownActivityType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, lifecycle.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "activity already completed"})
		return
	case err != nil:
		var cerr *lifecycle.ChainError
		if errors.As(err, &cerr) {
			// The completion itself stands, only the follow-up failed.
			metrics.IncrementActivityCompletion("chain_failed")
			h.logger.Warn("Complete: follow-up creation failed",
				zap.Int("activity_id", activityID),
				zap.Error(err),
			)
			c.JSON(http.StatusOK, gin.H{
				"status":      "completed",
				"chain_error": "failed to create follow-up activity",
				"activities":  activities,
			})
			return
		}
		h.logger.Error("Complete: failed",
			zap.Int("activity_id", activityID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete activity"})
		return
	}

	if fb.Next != nil {
		metrics.IncrementActivityCompletion("chained")
	} else {
		metrics.IncrementActivityCompletion("completed")
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "completed",
		"activities": activities,
	})
}

// Toggle handles POST /activities/:id/toggle
func (h *ActivityHandler) Toggle(c *gin.Context) {
	activityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}

	activity, err := h.lifecycle.ToggleComplete(c.Request.Context(), activityID)
	if err != nil {
		h.logger.Error("Toggle: failed",
			zap.Int("activity_id", activityID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle activity"})
		return
	}

	metrics.IncrementActivityCompletion("toggled")
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}
