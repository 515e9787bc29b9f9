package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/config"
	"go-trip-planner/internal/database"
	"go-trip-planner/internal/event"
	"go-trip-planner/internal/handler"
	"go-trip-planner/internal/metrics"
	"go-trip-planner/internal/middleware"
	"go-trip-planner/internal/notify"
	"go-trip-planner/internal/ratelimit"
	"go-trip-planner/internal/repository"
	"go-trip-planner/internal/router"
	"go-trip-planner/internal/service"
	"go-trip-planner/pkg/errutil"
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	db     *database.DB
	auth   *service.AuthService
	outbox *notify.Outbox
	bus    *event.InMemoryBus
	limits *ratelimit.MemoryStore
	audit  *service.AuditService
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.MigrateOnStart {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, database.Options{
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		ConnectRetries: cfg.DBConnectRetries,
	})
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, logger, repository.NewUserRepository(db.Pool), repository.NewResetTokenRepository(db.Pool), db.Health)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return a, nil
}

func migrateUp(databaseURL string) error {
	m, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// build wires everything above the storage layer.
func build(cfg *config.Config, logger *slog.Logger, users service.UserStore, resets auth.ResetTokenStore, health func(context.Context) error) (*App, error) {
	for _, w := range cfg.Warnings() {
		logger.Warn("insecure configuration", "app_env", cfg.AppEnv, "detail", w)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	hasher, err := auth.NewBcryptHasher(cfg.HashCost())
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}

	var delivery notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.MailAPIURL != "" {
		mailer, err := notify.NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, 10*time.Second)
		if err != nil {
			return nil, err
		}
		delivery = mailer
	}
	outbox := notify.NewOutbox(delivery, logger, notify.WithMetrics(m))

	bus := event.NewBus()
	authService, err := service.NewAuthService(service.AuthDeps{
		Users:        users,
		Hasher:       hasher,
		Sessions:     sessions,
		Resets:       auth.NewPasswordResetTokenService(resets),
		Notifier:     outbox,
		Bus:          bus,
		Metrics:      m,
		Logger:       logger,
		ResetURLBase: cfg.ResetURLBase,
	})
	if err != nil {
		return nil, err
	}

	var audit *service.AuditService
	var auditHandler *handler.AuditHandler
	if cfg.AuditLogFile != "" {
		audit, err = service.NewAuditService(cfg.AuditLogFile)
		if err != nil {
			return nil, err
		}
		auditHandler = handler.NewAuditHandler(audit, logger)
	}

	limitStore := ratelimit.NewMemoryStore()
	cookies := handler.CookieConfig{Secure: cfg.SecureCookies()}
	csrf := auth.NewCsrfGuard()

	appRouter := router.New(cfg, router.Deps{
		Logger:         logger,
		Metrics:        m,
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		CSRF:           middleware.NewCSRFMiddleware(csrf, m),
		Limits:         middleware.NewActionLimiter(ratelimit.New(limitStore), m, logger),
		AuthHandler:    handler.NewAuthHandler(authService, csrf, cookies, logger),
		UserHandler:    handler.NewUserHandler(authService, logger),
		AuditHandler:   auditHandler,
		Health:         health,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		ReadTimeout:       cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		server: server,
		auth:   authService,
		outbox: outbox,
		bus:    bus,
		limits: limitStore,
		audit:  audit,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	janitor := ratelimit.StartJanitor(a.limits, a.cfg.RateLimitPruneInterval)
	defer janitor.Stop()
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting", "addr", a.server.Addr, "env", a.cfg.AppEnv)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return oops.Code("SHUTDOWN_FAILED").Wrap(err)
		}
		a.logger.Info("server stopped")
		return nil
	})

	g.Go(func() error { return a.outbox.Run(gctx) })
	g.Go(func() error { return a.auth.RunResetWorker(gctx) })
	g.Go(func() error { return event.LogSubscriber(gctx, a.bus, a.logger) })
	g.Go(func() error { return a.purgeLoop(gctx) })
	if a.audit != nil {
		g.Go(func() error {
			return a.audit.Run(gctx, a.bus, func(err error) {
				errutil.LogError(a.logger, "audit write failed", err)
			})
		})
	}

	return g.Wait()
}

func (a *App) purgeLoop(ctx context.Context) error {
	interval := a.cfg.ResetPurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := a.auth.PurgeResetTokens(ctx)
			if err != nil {
				errutil.LogError(a.logger, "reset token purge failed", err)
				continue
			}
			if n > 0 {
				a.logger.Info("purged expired reset tokens", "count", n)
			}
		}
	}
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
