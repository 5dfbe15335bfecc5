package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pipecrm/config"
	mqcontracts "pipecrm/contracts/mq"
	"pipecrm/internal/mqhandler"
	"pipecrm/internal/repository"
	"pipecrm/internal/service"
	"pipecrm/pkg/db"
	"pipecrm/pkg/logger"
	"pipecrm/pkg/mq"
	"pipecrm/pkg/outbox"
	pkgredis "pipecrm/pkg/redis"
	"pipecrm/pkg/util"
)

const overdueSweepInterval = 10 * time.Minute

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting pipecrm-worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := pkgredis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.SetupDLQ(mqcontracts.KeyLeadStageChanged); err != nil {
		log.Fatal("Failed to declare DLQ", zap.Error(err))
	}

	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	activityRepo := repository.NewActivityRepository(dbConn, outbox.NewRepository(dbConn), log)

	notifier := service.NewWebhookNotifier(cfg.Notify.WebhookURL, log)
	deduper := util.NewDeduperWithLogger(rdb, 24*time.Hour, log)
	retries := util.NewRetryCounter(rdb, 24*time.Hour)

	stageChangedHandler := mqhandler.NewStageChangedHandler(notificationRepo, notifier, publisher, deduper, retries, log)
	activityCompletedHandler := mqhandler.NewActivityCompletedHandler(notificationRepo, log)
	activityOverdueHandler := mqhandler.NewActivityOverdueHandler(notificationRepo, deduper, log)

	// MQ Consumer for lead.stage_changed
	log.Info("Initializing MQ consumer for lead.stage_changed...",
		zap.String("queue", "lead.stage_changed.q"),
		zap.String("routing_key", mqcontracts.KeyLeadStageChanged),
	)
	stageConsumer, err := mq.NewConsumer(cfg.MQ.URL, "lead.stage_changed.q", mqcontracts.KeyLeadStageChanged, log)
	if err != nil {
		log.Fatal("Failed to init stage_changed consumer", zap.Error(err))
	}
	defer stageConsumer.Close()
	stageConsumer.SetHandler(stageChangedHandler.Handle)
	go func() {
		log.Info("Starting lead.stage_changed consumer...")
		if err := stageConsumer.StartConsuming(); err != nil {
			log.Fatal("Stage changed consumer failed", zap.Error(err))
		}
	}()

	// MQ Consumer for activity.completed
	log.Info("Initializing MQ consumer for activity.completed...",
		zap.String("queue", "activity.completed.q"),
		zap.String("routing_key", mqcontracts.KeyActivityCompleted),
	)
	completedConsumer, err := mq.NewConsumer(cfg.MQ.URL, "activity.completed.q", mqcontracts.KeyActivityCompleted, log)
	if err != nil {
		log.Fatal("Failed to init activity.completed consumer", zap.Error(err))
	}
	defer completedConsumer.Close()
	completedConsumer.SetHandler(activityCompletedHandler.Handle)
	go func() {
		log.Info("Starting activity.completed consumer...")
		if err := completedConsumer.StartConsuming(); err != nil {
			log.Fatal("Activity completed consumer failed", zap.Error(err))
		}
	}()

	// MQ Consumer for activity.overdue
	log.Info("Initializing MQ consumer for activity.overdue...",
		zap.String("queue", "activity.overdue.q"),
		zap.String("routing_key", mqcontracts.KeyActivityOverdue),
	)
	overdueConsumer, err := mq.NewConsumer(cfg.MQ.URL, "activity.overdue.q", mqcontracts.KeyActivityOverdue, log)
	if err != nil {
		log.Fatal("Failed to init activity.overdue consumer", zap.Error(err))
	}
	defer overdueConsumer.Close()
	overdueConsumer.SetHandler(activityOverdueHandler.Handle)
	go func() {
		log.Info("Starting activity.overdue consumer...")
		if err := overdueConsumer.StartConsuming(); err != nil {
			log.Fatal("Activity overdue consumer failed", zap.Error(err))
		}
	}()

	// Overdue sweep
	orchestrator := service.NewOrchestrator(activityRepo, publisher, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go orchestrator.Run(rootCtx, overdueSweepInterval)

	log.Info("pipecrm-worker is fully initialized and running",
		zap.Duration("overdue_sweep_interval", overdueSweepInterval),
	)

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pipecrm-worker gracefully...")
	rootCancel()

	log.Info("Stopping MQ consumers...")
	stageConsumer.Stop()
	completedConsumer.Stop()
	overdueConsumer.Stop()

	log.Info("pipecrm-worker shutdown complete")
}
