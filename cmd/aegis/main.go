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

	"github.com/aegis-authz/aegis/internal/app"
	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/auth"
	"github.com/aegis-authz/aegis/internal/authz"
	"github.com/aegis-authz/aegis/internal/features"
	"github.com/aegis-authz/aegis/internal/observability"
	"github.com/aegis-authz/aegis/internal/platform/cache"
	"github.com/aegis-authz/aegis/internal/platform/db"
	"github.com/aegis-authz/aegis/internal/policies"
	"github.com/aegis-authz/aegis/internal/roles"
	"github.com/aegis-authz/aegis/internal/users"
	"github.com/aegis-authz/aegis/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Evaluation degrades to direct repository reads without Redis.
		logger.Warn("redis unavailable, policy cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	featuresRepo := features.NewRepository(pool)
	featuresService := features.NewService(featuresRepo)
	featuresHandler := features.NewHandler(logger, featuresService)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo)
	rolesHandler := roles.NewHandler(logger, rolesService)

	policiesRepo := policies.NewRepository(pool)
	policyCache := policies.NewCachedSource(policiesRepo, redisClient, cfg.PolicyCacheTTL, logger)
	policiesService := policies.NewService(policiesRepo, policyCache, logger)
	policiesHandler := policies.NewHandler(logger, policiesService)

	recorder := audit.NewRecorder(pool, cfg.AuditWriteTimeout)
	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	metrics := observability.NewMetrics()

	engine := authz.NewEngine(usersRepo, rolesRepo, policyCache, recorder, logger)
	accessHandler := authz.NewHandler(logger, engine, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Auth:            auth.Middleware{APIKeyHash: cfg.APIKeyHash, Logger: logger},
		AccessHandler:   accessHandler,
		FeaturesHandler: featuresHandler,
		PoliciesHandler: policiesHandler,
		RolesHandler:    rolesHandler,
		UsersHandler:    usersHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
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
