package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pushdispatch/internal/config"
	"pushdispatch/internal/httpserver"
	"pushdispatch/internal/mqhandler"
	"pushdispatch/internal/repository"
	"pushdispatch/internal/scheduler"
	"pushdispatch/internal/service"
	"pushdispatch/pkg/circuitbreaker"
	"pushdispatch/pkg/db"
	"pushdispatch/pkg/logger"
	"pushdispatch/pkg/mq"
	"pushdispatch/pkg/outbox"
	"pushdispatch/pkg/push"
	"pushdispatch/pkg/redis"
	"pushdispatch/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting pushdispatch...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Bool("fcm_dry_run", cfg.FCM.DryRun),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis not reachable, reminder claims will fail open", zap.Error(err))
	}
	deduper := util.NewDeduper(rdb, cfg.Dispatch.ClaimTTL, log)

	// Push provider
	var sender push.Sender
	if cfg.FCM.DryRun {
		log.Warn("FCM dry run enabled, pushes are only logged")
		sender = push.NewLogSender(log)
	} else {
		fcmSender, err := push.NewFCMSender(ctx, cfg.FCM, log)
		if err != nil {
			log.Fatal("Failed to init FCM sender", zap.Error(err))
		}
		sender = push.NewBreakerSender(fcmSender, circuitbreaker.DefaultConfig(), log)
	}

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	notificationRepo := repository.NewNotificationRepository(dbConn)
	reminderRepo := repository.NewReminderRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	outboxRepo := outbox.NewRepository(dbConn)

	// Services
	dispatcher := service.NewDispatcher(notificationRepo, sender, log).
		WithSendTimeout(cfg.Dispatch.SendTimeout)
	poller := service.NewPoller(reminderRepo, userRepo, sender, deduper, service.PollerConfig{
		LatenessWindow: cfg.Dispatch.LatenessWindow,
		BatchSize:      cfg.Dispatch.PollBatchSize,
		Concurrency:    cfg.Dispatch.Concurrency,
		SendTimeout:    cfg.Dispatch.SendTimeout,
	}, log)
	sweeper := service.NewSweeper(notificationRepo, reminderRepo, service.SweeperConfig{
		Retention:   cfg.Dispatch.Retention(),
		BatchSize:   cfg.Dispatch.SweepBatchSize,
		Concurrency: cfg.Dispatch.Concurrency,
		SweepFailed: cfg.Dispatch.SweepFailed,
	}, log)
	producer := service.NewProducer(dbConn, outboxRepo, log)

	// Outbox dispatcher
	outboxDispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Dispatch.OutboxInterval)
	go outboxDispatcher.Start(ctx)

	// MQ Consumer for notification.created
	consumer, err := mq.NewConsumer(cfg.MQ.URL, mq.QueueNotificationCreated, mq.RoutingKeyNotificationCreated, cfg.Dispatch.ConsumerPrefetch, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	createdHandler := mqhandler.NewNotificationCreatedHandler(notificationRepo, dispatcher, log)
	consumer.SetHandler(createdHandler.Handle)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.StartConsuming(ctx); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()

	// Scheduler
	loc, err := time.LoadLocation(cfg.Dispatch.TimeZone)
	if err != nil {
		log.Fatal("Failed to load time zone", zap.String("time_zone", cfg.Dispatch.TimeZone), zap.Error(err))
	}
	sched, err := scheduler.New(poller, sweeper, scheduler.Config{
		PollSchedule:  cfg.Dispatch.PollSchedule,
		SweepSchedule: cfg.Dispatch.SweepSchedule,
		Location:      loc,
	}, log)
	if err != nil {
		log.Fatal("Failed to init scheduler", zap.Error(err))
	}
	sched.Start()

	// HTTP Server
	handler := httpserver.NewHandler(producer, sched, outboxRepo, log)
	router := httpserver.NewRouter(handler, cfg.JWT.Secret, map[string]httpserver.ReadinessCheck{
		"db":    dbConn.Ping,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("pushdispatch is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pushdispatch gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler shutdown error", zap.Error(err))
	}

	consumer.Stop()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for consumer to drain")
	}

	cancel()

	log.Info("pushdispatch shutdown complete")
}
