package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pipecrm/config"
	"pipecrm/internal/catalog"
	"pipecrm/internal/handler"
	"pipecrm/internal/httpserver"
	"pipecrm/internal/lifecycle"
	"pipecrm/internal/repository"
	"pipecrm/pkg/db"
	"pipecrm/pkg/logger"
	"pipecrm/pkg/mq"
	"pipecrm/pkg/outbox"
	pkgredis "pipecrm/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting pipecrm-api...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("port", cfg.Server.Port),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	rdb := pkgredis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ publisher + outbox dispatcher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(1 * time.Second).
		WithBatchSize(100)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go dispatcher.Start(rootCtx)

	// Catalogs are small and change rarely, load once at startup.
	catalogRepo := repository.NewCatalogRepository(dbConn, rdb, log)

	loadCtx, loadCancel := context.WithTimeout(rootCtx, 5*time.Second)
	stageRows, err := catalogRepo.ListStages(loadCtx)
	if err != nil {
		log.Fatal("Failed to load stage catalog", zap.Error(err))
	}
	typeRows, err := catalogRepo.ListActivityTypes(loadCtx)
	loadCancel()
	if err != nil {
		log.Fatal("Failed to load activity type catalog", zap.Error(err))
	}
	stages := catalog.NewStatusCatalog(stageRows)
	types := catalog.NewActivityTypeCatalog(typeRows)
	log.Info("Catalogs loaded",
		zap.Int("stages", len(stageRows)),
		zap.Int("activity_types", len(typeRows)),
	)

	// Repositories and engines
	leadRepo := repository.NewLeadRepository(dbConn, outboxRepo, stages, log)
	activityRepo := repository.NewActivityRepository(dbConn, outboxRepo, log)
	saleRepo := repository.NewSaleRepository(dbConn, log)
	goalRepo := repository.NewGoalRepository(dbConn, log)

	lc := lifecycle.New(types, activityRepo)

	handlers := httpserver.Handlers{
		Board:    handler.NewBoardHandler(stages, leadRepo, log),
		Activity: handler.NewActivityHandler(lc, types, activityRepo, log),
		Agenda:   handler.NewAgendaHandler(activityRepo, log),
		Goal:     handler.NewGoalHandler(saleRepo, goalRepo, activityRepo, log),
		Admin:    handler.NewAdminHandler(outbox.NewReplayer(outboxRepo, log), log),
	}

	router := httpserver.NewRouter(handlers, cfg.JWT.Secret, log, dbConn, nil)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("pipecrm-api is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pipecrm-api gracefully...")
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("pipecrm-api shutdown complete")
}
