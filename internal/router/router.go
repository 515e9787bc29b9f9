package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-trip-planner/internal/config"
	"go-trip-planner/internal/handler"
	"go-trip-planner/internal/metrics"
	"go-trip-planner/internal/middleware"
	"go-trip-planner/internal/model"
)

type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	AuthMiddleware *middleware.AuthMiddleware
	CSRF           *middleware.CSRFMiddleware
	Limits         *middleware.ActionLimiter
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	// AuditHandler is nil when the audit log is disabled.
	AuditHandler *handler.AuditHandler
	// Health reports backing store reachability. Optional.
	Health func(ctx context.Context) error
}

func New(cfg *config.Config, d Deps) http.Handler {
	r := chi.NewRouter()
	throttle := middleware.NewThrottle(cfg.GeneralRateLimitRPM, d.Metrics)

	r.Use(middleware.Recovery)
	r.Use(middleware.ClientAddress(cfg.ProxyHops()))
	r.Use(middleware.Logging(d.Logger, d.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if d.Health != nil {
			if err := d.Health(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsEnabled && d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(throttle.Handler)

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/csrf", d.AuthHandler.CSRF)
			auth.With(d.Limits.Limit(cfg.LoginPolicy()), d.CSRF.RequireCSRF).Post("/login", d.AuthHandler.Login)
			auth.With(d.CSRF.RequireCSRF, d.AuthMiddleware.Identify).Post("/logout", d.AuthHandler.Logout)
			auth.With(d.AuthMiddleware.RequireAuth).Get("/me", d.AuthHandler.Me)
			auth.With(d.Limits.Limit(cfg.ResetRequestPolicy()), d.CSRF.RequireCSRF).Post("/password-reset", d.AuthHandler.RequestPasswordReset)
			auth.With(d.Limits.Limit(cfg.ResetConfirmPolicy()), d.CSRF.RequireCSRF).Post("/password-reset/confirm", d.AuthHandler.ConfirmPasswordReset)
		})

		api.Route("/users/me", func(me chi.Router) {
			me.Use(d.AuthMiddleware.RequireAuth, d.CSRF.RequireCSRF)
			me.Put("/password", d.UserHandler.ChangePassword)
			me.Patch("/language", d.UserHandler.UpdateLanguage)
		})

		if d.AuditHandler != nil {
			api.With(d.AuthMiddleware.RequireAuth, d.AuthMiddleware.RequireRoles(model.RoleAdmin)).Get("/admin/audit", d.AuditHandler.List)
		}
	})

	return r
}
