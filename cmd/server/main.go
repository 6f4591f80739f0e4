package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"acadtrack/internal/handler"
	"acadtrack/internal/httpserver"
	"acadtrack/internal/repository"
	"acadtrack/internal/service/completion"
	"acadtrack/internal/service/lock"
	"acadtrack/pkg/config"
	"acadtrack/pkg/db"
	"acadtrack/pkg/logger"
	"acadtrack/pkg/mq"
	"acadtrack/pkg/outbox"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting acadtrack server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established")

	// MQ publisher used by the outbox dispatcher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Store and core services
	st := repository.NewStore(dbConn, log)
	engine := lock.NewEngine(st, log)
	aggregator := completion.NewAggregator(st, log)

	userRepo := repository.NewUserRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	// Outbox dispatcher publishes committed events to the MQ
	dispatcher := outbox.NewDispatcher(st.Outbox(), publisher, log)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	go dispatcher.Start(dispatcherCtx)
	log.Info("Outbox dispatcher started")

	// Handlers
	handlers := httpserver.Handlers{
		Locks:         handler.NewLockHandler(engine, log),
		Projects:      handler.NewProjectHandler(st, engine, log),
		Milestones:    handler.NewMilestoneHandler(st, engine, log),
		Tasks:         handler.NewTaskHandler(st, engine, aggregator, log),
		Reports:       handler.NewReportHandler(st, engine, log),
		Users:         handler.NewUserHandler(userRepo, cfg.JWT.Secret, log),
		Notifications: handler.NewNotificationHandler(notificationRepo, log),
	}

	router := httpserver.NewRouter(handlers, cfg.JWT.Secret, log, dbConn)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("acadtrack server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down acadtrack server gracefully...")

	dispatcherCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	publisher.Close()
	dbConn.Close()

	log.Info("acadtrack server shutdown complete")
}
