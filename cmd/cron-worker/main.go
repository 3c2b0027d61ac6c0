package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/internal/cron"
	"github.com/bizdirect/bizdirect-backend/internal/invitations"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/internal/notifications"
	"github.com/bizdirect/bizdirect-backend/pkg/config"
	"github.com/bizdirect/bizdirect-backend/pkg/db"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/metrics"
	"github.com/bizdirect/bizdirect-backend/pkg/migrate"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
	"github.com/bizdirect/bizdirect-backend/pkg/redis"
)

const lockKeyFormat = "bd:cron-worker:lock:%s"

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

	cfg.Service.Kind = "cron-worker"

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

	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)
	outboxService := outbox.NewService(outboxRepo, logg)
	activityService, err := activity.NewService(activity.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to build activity service", err)
		os.Exit(1)
	}

	managersService, err := managers.NewService(managers.Params{
		Repo:     managers.NewRepository(gormDB),
		Tx:       dbClient,
		Outbox:   outboxService,
		Activity: activityService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build managers service", err)
		os.Exit(1)
	}

	invitationsService, err := invitations.NewService(invitations.Params{
		Repo:     invitations.NewRepository(gormDB),
		Managers: managersService,
		Tx:       dbClient,
		Outbox:   outboxService,
		Activity: activityService,
		Config:   cfg.Invitations,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build invitations service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewInvitationExpiryJob(cron.InvitationExpiryJobParams{
		Logger:      logg,
		Invitations: invitationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build invitation expiry job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build notification cleanup job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(expiryJob, cleanupJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
