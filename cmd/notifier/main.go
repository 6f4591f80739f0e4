package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"acadtrack/contracts/mq"
	"acadtrack/internal/mqhandler"
	"acadtrack/internal/repository"
	"acadtrack/internal/service/audience"
	"acadtrack/internal/service/notifier"
	"acadtrack/pkg/config"
	"acadtrack/pkg/db"
	"acadtrack/pkg/logger"
	pkgmq "acadtrack/pkg/mq"
	"acadtrack/pkg/redis"
	"acadtrack/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting acadtrack notifier...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()

	st := repository.NewStore(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	// publisher for delivery audit events and the DLQ
	publisher, err := pkgmq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()
	if err := publisher.SetupDLQ(mq.RoutingKeyProjectLocked, mq.RoutingKeyMilestoneLocked); err != nil {
		log.Fatal("Failed to declare DLQ topology", zap.Error(err))
	}

	resolver := audience.NewResolver(st, log)
	pushClient := notifier.NewPushClient(cfg.Push, log)
	sender := notifier.NewSender(notificationRepo, pushClient, publisher, log)
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	lockedHandler := mqhandler.NewNodeLockedHandler(resolver, sender, deduper, retryCounter, publisher, log)

	// one consumer per routing key, both feeding the same handler
	consumers := make([]*pkgmq.Consumer, 0, 2)
	for _, binding := range []struct {
		queue      string
		routingKey string
	}{
		{"project.locked.q", mq.RoutingKeyProjectLocked},
		{"milestone.locked.q", mq.RoutingKeyMilestoneLocked},
	} {
		consumer, err := pkgmq.NewConsumer(cfg.MQ.URL, binding.queue, binding.routingKey, log)
		if err != nil {
			log.Fatal("Failed to init consumer",
				zap.String("queue", binding.queue),
				zap.Error(err),
			)
		}
		consumer.SetHandler(lockedHandler.Handle)
		consumers = append(consumers, consumer)

		go func(c *pkgmq.Consumer, queue string) {
			log.Info("Starting consumer", zap.String("queue", queue))
			if err := c.StartConsuming(); err != nil {
				log.Fatal("Consumer failed", zap.String("queue", queue), zap.Error(err))
			}
		}(consumer, binding.queue)
	}

	log.Info("acadtrack notifier is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down acadtrack notifier gracefully...")

	for _, c := range consumers {
		c.Stop()
	}
	rdb.Close()
	dbConn.Close()

	log.Info("acadtrack notifier shutdown complete")
}
