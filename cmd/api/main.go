package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/bizdirect/bizdirect-backend/api/routes"
	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/internal/auth"
	"github.com/bizdirect/bizdirect-backend/internal/branches"
	"github.com/bizdirect/bizdirect-backend/internal/invitations"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/internal/notifications"
	"github.com/bizdirect/bizdirect-backend/internal/users"
	"github.com/bizdirect/bizdirect-backend/pkg/auth/session"
	"github.com/bizdirect/bizdirect-backend/pkg/config"
	"github.com/bizdirect/bizdirect-backend/pkg/db"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/migrate"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
	"github.com/bizdirect/bizdirect-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	activityService, err := activity.NewService(activity.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	branchesService, err := branches.NewService(branches.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create branches service", err)
		os.Exit(1)
	}

	managersService, err := managers.NewService(managers.Params{
		Repo:     managers.NewRepository(gormDB),
		Tx:       dbClient,
		Outbox:   outboxService,
		Activity: activityService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create managers service", err)
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
		logg.Error(context.Background(), "failed to create invitations service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		Tenants:        branchesService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	services := routes.Services{
		Auth:          authService,
		Branches:      branchesService,
		Managers:      managersService,
		Invitations:   invitationsService,
		Activity:      activityService,
		Notifications: notificationsService,
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, services),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
