package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/cron"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/escrow"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/notifications"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/quotes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/config"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/metrics"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/migrate"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, logg)
	quoteRepo := quotes.NewRepository(conn)
	escrowRepo := escrow.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	consumer, err := notifications.NewConsumer(outboxRepo, notificationRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	quoteExpiry, err := cron.NewQuoteExpiryJob(cron.QuoteExpiryJobParams{
		Logger:    logg,
		DB:        dbClient,
		DueReader: quoteRepo,
		Outbox:    outboxSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quote expiry job", err)
		os.Exit(1)
	}

	returnReminder, err := cron.NewReturnReminderJob(cron.ReturnReminderJobParams{
		Logger:      logg,
		DB:          dbClient,
		StaleReader: escrowRepo,
		Outbox:      outboxSvc,
		OutboxRepo:  outboxRepo,
		StaleDays:   cfg.Cron.ReturnStaleDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create return reminder job", err)
		os.Exit(1)
	}

	fanout, err := cron.NewNotificationFanoutJob(logg, consumer)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification fan-out job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(fanout)
	registry.Register(quoteExpiry)
	registry.Register(returnReminder)

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
