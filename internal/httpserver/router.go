package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pipecrm/internal/handler"
	"pipecrm/pkg/mq"
	"pipecrm/pkg/rbac"
)

type Handlers struct {
	Board    *handler.BoardHandler
	Activity *handler.ActivityHandler
	Agenda   *handler.AgendaHandler
	Goal     *handler.GoalHandler
	Admin    *handler.AdminHandler
}

func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, db *pgxpool.Pool, consumer *mq.Consumer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(logger))
	r.Use(MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/board", RequirePermission(rbac.PermissionReadBoard), h.Board.GetBoard)
		auth.POST("/board/leads/:id/stage", RequirePermission(rbac.PermissionMoveLeadStage), h.Board.MoveStage)
		auth.GET("/board/leads/:id/history", RequirePermission(rbac.PermissionReadBoard), h.Board.GetStageHistory)

		auth.GET("/leads/:id/activities", RequirePermission(rbac.PermissionReadActivity), h.Activity.ListByLead)
		auth.POST("/activities", RequirePermission(rbac.PermissionCreateActivity), h.Activity.Create)
		auth.POST("/activities/:id/complete", RequirePermission(rbac.PermissionCompleteActivity), h.Activity.Complete)
		auth.POST("/activities/:id/toggle", RequirePermission(rbac.PermissionToggleActivity), h.Activity.Toggle)

		auth.GET("/agenda", RequirePermission(rbac.PermissionReadActivity), h.Agenda.GetAgenda)
		auth.GET("/goals/:year/:month", RequirePermission(rbac.PermissionReadGoal), h.Goal.GetMonthly)

		auth.GET("/me/permissions", h.Admin.GetPermissions)
		auth.POST("/admin/outbox/replay", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayOutboxEvent)
		auth.POST("/admin/outbox/replay-failed", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayFailedEvents)
	}

	return r
}
