package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/userforge/userforge-backend/internal/cron"
	"github.com/userforge/userforge-backend/internal/logs"
	"github.com/userforge/userforge-backend/internal/notifications"
	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/metrics"
	"github.com/userforge/userforge-backend/pkg/migrate"
	"github.com/userforge/userforge-backend/pkg/redis"
)

const lockKeyFormat = "uf:cron-worker:lock:%s"

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

	rbacRepo := rbac.NewRepository(dbClient.DB())
	graph, err := rbac.NewGraph(rbacRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to build permission graph", err)
		os.Exit(1)
	}
	guard, err := rbac.NewGuard(graph)
	if err != nil {
		logg.Error(context.Background(), "failed to build authorization guard", err)
		os.Exit(1)
	}

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:      notificationsRepo,
		Senders:   notifications.NewLogSenders(logg),
		BatchSize: cfg.Notifications.DispatchBatchSize,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	logsService, err := logs.NewService(logs.ServiceParams{
		Repo:   logs.NewRepository(dbClient.DB()),
		Guard:  guard,
		Config: cfg.Logs,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create logs service", err)
		os.Exit(1)
	}

	dispatchJob, err := cron.NewNotificationDispatchJob(cron.NotificationDispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewLogRetentionJob(cron.LogRetentionJobParams{
		Logger: logg,
		Logs:   logsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(dispatchJob, retentionJob),
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
