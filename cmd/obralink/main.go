package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obralink/obralink/internal/access"
	"github.com/obralink/obralink/internal/app"
	"github.com/obralink/obralink/internal/auth"
	"github.com/obralink/obralink/internal/equity"
	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/observability"
	"github.com/obralink/obralink/internal/platform/cache"
	"github.com/obralink/obralink/internal/platform/db"
	"github.com/obralink/obralink/internal/projects"
	"github.com/obralink/obralink/internal/treasury"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(pool)
	summaryCache := ledger.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)
	ledgerService := ledger.NewService(ledgerRepo, summaryCache)

	installmentsRepo := installments.NewRepository(pool)
	installmentsService := installments.NewService(installmentsRepo)

	treasuryUoW := treasury.NewRepository(pool, ledgerRepo, installmentsRepo)
	coordinator := treasury.NewCoordinator(treasuryUoW, logger, metrics, ledgerService)
	feeEngine := treasury.NewFeeEngine(coordinator, logger)

	equityRepo := equity.NewRepository(pool)
	equityService := equity.NewService(equityRepo, coordinator, logger)

	projectsRepo := projects.NewRepository(pool, ledgerRepo, installmentsRepo)
	projectsService := projects.NewService(projectsRepo, logger)

	accessRepo := access.NewRepository(pool)
	accessService := access.NewService(accessRepo, logger)

	authRepo := auth.NewRepository(pool)
	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)
	authService := auth.NewService(authRepo, sessions)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Pool:                pool,
		Metrics:             metrics,
		AuthHandler:         auth.NewHandler(logger, authService),
		ProjectsHandler:     projects.NewHandler(logger, projectsService),
		LedgerHandler:       ledger.NewHandler(logger, ledgerService),
		InstallmentsHandler: installments.NewHandler(logger, installmentsService),
		TreasuryHandler:     treasury.NewHandler(logger, coordinator, feeEngine),
		EquityHandler:       equity.NewHandler(logger, equityService),
		AccessHandler:       access.NewHandler(logger, accessService, equityService, cfg.PortalBaseURL),
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
