package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/CharlesNg35/shellcn-sub005/internal/app"
	"github.com/CharlesNg35/shellcn-sub005/internal/audit"
	"github.com/CharlesNg35/shellcn-sub005/internal/auth"
	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
	"github.com/CharlesNg35/shellcn-sub005/internal/grants"
	"github.com/CharlesNg35/shellcn-sub005/internal/identity"
	"github.com/CharlesNg35/shellcn-sub005/internal/observability"
	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
	"github.com/CharlesNg35/shellcn-sub005/internal/roles"
	"github.com/CharlesNg35/shellcn-sub005/internal/shared"
	"github.com/CharlesNg35/shellcn-sub005/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// The registry is the boot barrier: a duplicate ID, unknown dependency,
	// or dependency cycle aborts startup before the server accepts traffic.
	registry := permissions.NewRegistry()
	if err := permissions.RegisterCore(registry); err != nil {
		logger.Error("register core permissions", slog.Any("error", err))
		os.Exit(1)
	}
	if err := permissions.RegisterProtocols(registry); err != nil {
		logger.Error("register protocol permissions", slog.Any("error", err))
		os.Exit(1)
	}
	if err := registry.Validate(); err != nil {
		logger.Error("validate permission registry", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "shellcn_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()
	grantCache := authz.NewGrantCache(redisClient, cfg.GrantCacheTTL)

	auditRecorder := audit.NewRecorder(dbpool)
	grantsRepo := grants.NewRepository(dbpool, auditRecorder)
	rolesRepo := roles.NewRepository(dbpool)
	identityRepo := identity.NewRepository(dbpool)

	// Role and team capability grants are resource-agnostic and safe to
	// cache; per-resource grants are always read fresh so expiry is honored
	// at the instant of the check.
	checker := authz.NewChecker(registry, logger,
		authz.NewCachedSource(roles.NewGrantSource(rolesRepo), grantCache, logger),
		authz.NewCachedSource(grants.NewTeamCapabilitySource(grantsRepo), grantCache, logger),
		grants.NewResourceGrantSource(grantsRepo),
	).WithDecisionRecorder(metrics)

	resolver := identity.NewResolver(identityRepo)
	mw := &authz.Middleware{Checker: checker, Resolver: resolver, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rolesService := roles.NewService(rolesRepo, registry, grantCache, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, mw)

	grantsService := grants.NewService(grantsRepo, checker, registry, grantCache, logger)
	grantsHandler := grants.NewHandler(logger, grantsService, mw)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audit.NewHandler(logger, auditService, mw)

	permissionsHandler := authz.NewPermissionsHandler(logger, registry, checker, mw)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		GrantsHandler:      grantsHandler,
		AuditHandler:       auditHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
