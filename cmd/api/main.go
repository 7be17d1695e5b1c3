package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cellar-backend/api/routes"
	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/auth"
	"github.com/angelmondragon/cellar-backend/internal/catalog"
	"github.com/angelmondragon/cellar-backend/internal/ledger"
	"github.com/angelmondragon/cellar-backend/internal/reports"
	"github.com/angelmondragon/cellar-backend/internal/users"
	"github.com/angelmondragon/cellar-backend/pkg/auth/session"
	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	"github.com/angelmondragon/cellar-backend/pkg/metrics"
	"github.com/angelmondragon/cellar-backend/pkg/migrate"
	"github.com/angelmondragon/cellar-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
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

	deps, err := buildDeps(cfg, logg, dbClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Redis = redisClient
	deps.DB = dbClient
	deps.Sessions = sessionManager

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
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager) (routes.Deps, error) {
	gate := access.NewRoleGate(nil)
	conn := dbClient.DB()

	auditRepo := audit.NewRepository(conn)
	auditService, err := audit.NewService(auditRepo, gate)
	if err != nil {
		return routes.Deps{}, err
	}

	userRepo := users.NewRepository(conn)
	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		DB:             dbClient,
		SessionManager: sessions,
		Audit:          auditService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:  userRepo,
		DB:    dbClient,
		Gate:  gate,
		Audit: auditRepo,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:    ledger.NewRepository(conn),
		DB:      dbClient,
		Gate:    gate,
		Audit:   auditService,
		Metrics: metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:  catalog.NewRepository(conn),
		DB:    dbClient,
		Gate:  gate,
		Audit: auditService,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Repo:              reports.NewRepository(conn),
		Gate:              gate,
		LowStockThreshold: cfg.Ledger.LowStockThreshold,
		WindowDays:        cfg.Ledger.ReportWindowDays,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Config:  cfg,
		Logger:  logg,
		Metrics: prometheus.DefaultGatherer,
		Auth:    authService,
		Ledger:  ledgerService,
		Catalog: catalogService,
		Reports: reportService,
		Audit:   auditService,
		Users:   userService,
	}, nil
}
