package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
	"pipecrm/internal/pipeline"
	"pipecrm/pkg/metrics"
)

// LeadSource is the slice of the lead repository the board handler needs.
type LeadSource interface {
	ListByUser(ctx context.Context, userID int) ([]model.Lead, error)
	StageHistory(ctx context.Context, leadID int) ([]model.StageChange, error)
	pipeline.LeadStore
}

type BoardHandler struct {
	stages *catalog.StatusCatalog
	leads  LeadSource
	logger *zap.Logger
}

func NewBoardHandler(stages *catalog.StatusCatalog, leads LeadSource, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{stages: stages, leads: leads, logger: logger}
}

// GetBoard handles GET /board
func (h *BoardHandler) GetBoard(c *gin.Context) {
	userID := c.GetInt("user_id")

	leads, err := h.leads.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("GetBoard: failed to fetch leads",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leads"})
		return
	}

	board := pipeline.NewBoard(h.stages, h.leads, leads)
	c.JSON(http.StatusOK, gin.H{
		"stages":         h.stages.Stages(),
		"leads_by_stage": board.LeadsByStage(),
	})
}

// MoveStage handles POST /board/leads/:id/stage
func (h *BoardHandler) MoveStage(c *gin.Context) {
	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var req struct {
		TargetStageID string `json:"target_stage_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetStageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_stage_id required"})
		return
	}

	userID := c.GetInt("user_id")
	h.logger.Info("MoveStage request received",
		zap.Int("user_id", userID),
		zap.Int("lead_id", leadID),
		zap.String("target_stage_id", req.TargetStageID),
	)

	leads, err := h.leads.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leads"})
		return
	}

	var current *model.Lead
	for i := range leads {
		if leads[i].ID == leadID {
			current = &leads[i]
			break
		}
	}
	if current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	noop := current.StageID == req.TargetStageID

	board := pipeline.NewBoard(h.stages, h.leads, leads)
	if err := board.BeginDrag(leadID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "drag already active"})
		return
	}

	err = board.CompleteDrag(c.Request.Context(), leadID, req.TargetStageID)
	switch {
	case errors.Is(err, pipeline.ErrUnknownStage):
		metrics.IncrementStageTransition("rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target stage"})
		return
	case errors.Is(err, pipeline.ErrUpdateInFlight):
		metrics.IncrementStageTransition("rejected")
		c.JSON(http.StatusConflict, gin.H{"error": "stage update already in flight"})
		return
	case err != nil:
		var perr *pipeline.PersistError
		if errors.As(err, &perr) {
			metrics.IncrementStageTransition("rolled_back")
			h.logger.Error("MoveStage: persistence failed, rolled back",
				zap.Int("lead_id", leadID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist stage change"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stage change failed"})
		return
	}

	if noop {
		metrics.IncrementStageTransition("noop")
	} else {
		metrics.IncrementStageTransition("committed")
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"leads_by_stage": board.LeadsByStage(),
	})
}

// GetStageHistory handles GET /board/leads/:id/history
func (h *BoardHandler) GetStageHistory(c *gin.Context) {
	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	history, err := h.leads.StageHistory(c.Request.Context(), leadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stage history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}
