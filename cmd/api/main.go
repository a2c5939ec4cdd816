package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/userforge/userforge-backend/api/routes"
	"github.com/userforge/userforge-backend/internal/auth"
	"github.com/userforge/userforge-backend/internal/logs"
	"github.com/userforge/userforge-backend/internal/notifications"
	"github.com/userforge/userforge-backend/internal/profiles"
	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/internal/users"
	"github.com/userforge/userforge-backend/pkg/auth/session"
	"github.com/userforge/userforge-backend/pkg/config"
	"github.com/userforge/userforge-backend/pkg/db"
	"github.com/userforge/userforge-backend/pkg/logger"
	"github.com/userforge/userforge-backend/pkg/metrics"
	"github.com/userforge/userforge-backend/pkg/migrate"
	"github.com/userforge/userforge-backend/pkg/redis"
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

	rbacRepo := rbac.NewRepository(dbClient.DB())
	if cfg.FeatureFlags.SeedRBAC {
		if err := rbac.Seed(context.Background(), rbacRepo, logg); err != nil {
			logg.Error(context.Background(), "failed to seed rbac catalog", err)
			os.Exit(1)
		}
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

	usersRepo := users.NewRepository(dbClient.DB())
	profilesRepo := profiles.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	logsRepo := logs.NewRepository(dbClient.DB())

	events, err := notifications.NewEvents(notificationsRepo, cfg.Notifications)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification events", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:    usersRepo,
		Roles:    rbacRepo,
		Sessions: sessionManager,
		Reset:    redisClient,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Lockout:  cfg.Lockout,
		Logger:   logg,
		Notifier: events,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Roles:    rbacRepo,
		Guard:    guard,
		Password: cfg.Password,
		Logger:   logg,
		Notifier: events,
		Sessions: sessionManager,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	profilesService, err := profiles.NewService(profiles.ServiceParams{
		Repo:   profilesRepo,
		Users:  usersRepo,
		Guard:  guard,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notificationsRepo,
		Guard:  guard,
		Config: cfg.Notifications,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	logsService, err := logs.NewService(logs.ServiceParams{
		Repo:   logsRepo,
		Guard:  guard,
		Config: cfg.Logs,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create logs service", err)
		os.Exit(1)
	}

	rolesService, err := rbac.NewService(rbac.ServiceParams{
		Repo:  rbacRepo,
		Graph: graph,
		Guard: guard,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create roles service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			Sessions:             sessionManager,
			AuthService:          authService,
			UsersService:         usersService,
			ProfilesService:      profilesService,
			NotificationsService: notificationsService,
			LogsService:          logsService,
			RolesService:         rolesService,
			AuditRecorder:        logs.NewRecorder(logsRepo, logg),
			HTTPMetrics:          httpMetrics,
			MetricsGatherer:      prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
