package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/poslite-backend/api/routes"
	"github.com/angelmondragon/poslite-backend/internal/auth"
	"github.com/angelmondragon/poslite-backend/internal/backup"
	"github.com/angelmondragon/poslite-backend/internal/export"
	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/internal/reports"
	"github.com/angelmondragon/poslite-backend/pkg/auth/session"
	"github.com/angelmondragon/poslite-backend/pkg/config"
	"github.com/angelmondragon/poslite-backend/pkg/db"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/angelmondragon/poslite-backend/pkg/metrics"
	"github.com/angelmondragon/poslite-backend/pkg/migrate"
	"github.com/angelmondragon/poslite-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	location, err := cfg.App.Location()
	requireResource(context.Background(), logg, "store timezone", err)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(context.Background(), logg, "database", err)

	if err := migrate.MaybeAutoRun(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(context.Background(), logg, "migrations", err)
	}

	redisClient, err := redis.Open(context.Background(), cfg.Redis, logg)
	requireResource(context.Background(), logg, "redis", err)

	revoker, err := session.NewRevoker(redisClient)
	requireResource(context.Background(), logg, "token revoker", err)

	credentials, err := auth.LoadCredentialsFile(cfg.Auth.CredentialsFile)
	requireResource(context.Background(), logg, "operator credentials", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Credentials:    credentials,
		Revoker:        revoker,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(context.Background(), logg, "auth service", err)

	var (
		registry    *prometheus.Registry
		gatherer    prometheus.Gatherer
		registerer  prometheus.Registerer
		httpMetrics *metrics.HTTPMetrics
	)
	if cfg.FeatureFlags.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gatherer, registerer = registry, registry
	}
	ledgerMetrics := metrics.NewLedgerMetrics(registerer)
	httpMetrics = metrics.NewHTTPMetrics(registerer)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:     ledger.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Logger:   logg,
		Observer: ledgerMetrics,
		Location: location,
	})
	requireResource(context.Background(), logg, "ledger service", err)

	reportService, err := reports.NewService(ledgerService)
	requireResource(context.Background(), logg, "reports service", err)

	exporter, err := export.NewExporter(ledgerService)
	requireResource(context.Background(), logg, "csv exporter", err)

	backups := backup.NewManager(cfg.DB, cfg.Backup, dbClient.DB(), nil)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"db_driver": cfg.DB.Driver,
		"timezone":  location.String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			revoker,
			authService,
			ledgerService,
			reportService,
			exporter,
			backups,
			httpMetrics,
			gatherer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if err != nil {
		logg.Error(ctx, "shutdown incomplete", err)
		exitCode = 1
	} else {
		logg.Info(ctx, "api server stopped")
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
