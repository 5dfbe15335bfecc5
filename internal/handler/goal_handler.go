package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipecrm/internal/goal"
	"pipecrm/internal/model"
)

const (
	MetricSalesAmount         = "sales_amount"
	MetricSalesCount          = "sales_count"
	MetricActivitiesCompleted = "activities_completed"
)

type SaleSource interface {
	ListByUserRange(ctx context.Context, userID int, from, to time.Time) ([]model.Sale, error)
}

type GoalSource interface {
	ListByUserMonth(ctx context.Context, userID, year, month int) ([]model.Goal, error)
}

type GoalHandler struct {
	sales      SaleSource
	goals      GoalSource
	activities AgendaSource
	logger     *zap.Logger
}

func NewGoalHandler(sales SaleSource, goals GoalSource, activities AgendaSource, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{sales: sales, goals: goals, activities: activities, logger: logger}
}

// GetMonthly handles GET /goals/:year/:month
func (h *GoalHandler) GetMonthly(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	monthNum, err := strconv.Atoi(c.Param("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	userID := c.GetInt("user_id")
	m := goal.Month{Year: year, Month: time.Month(monthNum)}
	from, to := m.Range(time.UTC)
	ctx := c.Request.Context()

	sales, err := h.sales.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		h.logger.Error("GetMonthly: failed to fetch sales",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch sales"})
		return
	}

	activities, err := h.activities.ListByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch activities"})
		return
	}

	records := make([]goal.Record, 0, len(sales)+len(activities))
	for _, s := range sales {
		records = append(records, goal.Record{
			OccurredAt: s.SoldAt,
			Values: map[string]float64{
				MetricSalesAmount: s.Amount,
				MetricSalesCount:  1,
			},
		})
	}
	for _, a := range activities {
		if a.IsCompleted && a.CompletedAt != nil {
			records = append(records, goal.Record{
				OccurredAt: *a.CompletedAt,
				Values:     map[string]float64{MetricActivitiesCompleted: 1},
			})
		}
	}

	metrics := []string{MetricSalesAmount, MetricSalesCount, MetricActivitiesCompleted}
	totals := goal.Aggregate(records, m, metrics)

	goals, err := h.goals.ListByUserMonth(ctx, userID, year, monthNum)
	if err != nil {
		h.logger.Error("GetMonthly: failed to fetch goal targets",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch goal targets"})
		return
	}
	targets := make(map[string]float64, len(goals))
	for _, g := range goals {
		targets[g.Metric] = g.Target
	}

	out := make([]gin.H, 0, len(metrics))
	for _, metric := range metrics {
		target := targets[metric]
		out = append(out, gin.H{
			"metric":   metric,
			"actual":   totals[metric],
			"target":   target,
			"progress": goal.Progress(totals[metric], target),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"year":    year,
		"month":   monthNum,
		"metrics": out,
	})
}
