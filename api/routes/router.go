package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/userforge/userforge-backend/api/controllers"
	"github.com/userforge/userforge-backend/api/middleware"
	internalauth "github.com/userforge/userforge-backend/internal/auth"
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
	"github.com/userforge/userforge-backend/pkg/redis"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	AuthService          internalauth.Service
	UsersService         users.Service
	ProfilesService      profiles.Service
	NotificationsService notifications.Service
	LogsService          logs.Service
	RolesService         rbac.Service

	AuditRecorder   *logs.Recorder
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer
}

// NewRouter wires middleware, controllers and route groups.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
		middleware.Audit(deps.AuditRecorder, deps.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(deps.DB, deps.Redis)))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/password-reset", controllers.AuthPasswordResetRequest(deps.AuthService, logg))
		r.Post("/password-reset/confirm", controllers.AuthPasswordResetConfirm(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/auth/password", controllers.AuthChangePassword(deps.AuthService, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(deps.UsersService, logg))
			r.Post("/", controllers.UsersCreate(deps.UsersService, logg))
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", controllers.UsersGet(deps.UsersService, logg))
				r.Patch("/", controllers.UsersUpdate(deps.UsersService, logg))
				r.Delete("/", controllers.UsersDelete(deps.UsersService, logg))
				r.Post("/activate", controllers.UsersActivate(deps.UsersService, logg))
				r.Post("/deactivate", controllers.UsersDeactivate(deps.UsersService, logg))
				r.Put("/role", controllers.UsersChangeRole(deps.UsersService, logg))

				r.Get("/profile", controllers.ProfilesGet(deps.ProfilesService, logg))
				r.Put("/profile", controllers.ProfilesUpsert(deps.ProfilesService, logg))
				r.Delete("/profile", controllers.ProfilesDelete(deps.ProfilesService, logg))
			})
		})

		r.Get("/profiles", controllers.ProfilesList(deps.ProfilesService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(deps.NotificationsService, logg))
			r.Post("/", controllers.NotificationsCreate(deps.NotificationsService, logg))
			r.Get("/all", controllers.NotificationsListAll(deps.NotificationsService, logg))
			r.Get("/unread-count", controllers.NotificationsUnreadCount(deps.NotificationsService, logg))
			r.Get("/types", controllers.NotificationTypes(deps.NotificationsService, logg))
			r.Route("/{notificationId}", func(r chi.Router) {
				r.Get("/", controllers.NotificationsGet(deps.NotificationsService, logg))
				r.Delete("/", controllers.NotificationsDelete(deps.NotificationsService, logg))
				r.Post("/read", controllers.NotificationsMarkRead(deps.NotificationsService, logg))
			})
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", controllers.LogsList(deps.LogsService, logg))
			r.Post("/purge", controllers.LogsPurge(deps.LogsService, logg))
			r.Get("/{logId}", controllers.LogsGet(deps.LogsService, logg))
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", controllers.RolesList(deps.RolesService, logg))
			r.Get("/permissions", controllers.PermissionsList(deps.RolesService, logg))
			r.Route("/{roleId}", func(r chi.Router) {
				r.Get("/", controllers.RolesGet(deps.RolesService, logg))
				r.Post("/permissions", controllers.RolesGrantPermission(deps.RolesService, logg))
				r.Delete("/permissions", controllers.RolesRevokePermission(deps.RolesService, logg))
			})
		})
	})

	return r
}
