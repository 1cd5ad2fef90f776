package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/the-tatanka/product-vas-fraud-api/internal/auth"
	corecfg "github.com/the-tatanka/product-vas-fraud-api/internal/core/config"
	"github.com/the-tatanka/product-vas-fraud-api/internal/core/storage/postgres"
	"github.com/the-tatanka/product-vas-fraud-api/internal/ingestion"
	"github.com/the-tatanka/product-vas-fraud-api/internal/migrations"
	"github.com/the-tatanka/product-vas-fraud-api/internal/relay"
	"github.com/the-tatanka/product-vas-fraud-api/internal/reporting"
	"github.com/the-tatanka/product-vas-fraud-api/internal/server"
	"github.com/the-tatanka/product-vas-fraud-api/internal/statistics"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Error Reporting
	reporter, flushReporter, err := reporting.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, cfg.Sentry.Release)
	if err != nil {
		slog.Error("Failed to initialize error reporting", "error", err)
		os.Exit(1)
	}
	defer flushReporter()

	// 3. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 3.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := dbAdapter.ValidateSchema(context.Background()); err != nil {
		slog.Error("Database schema validation failed", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Bearer Token Verification
	publicKey := cfg.Keycloak.PublicKey
	if publicKey == "" {
		publicKey, err = auth.FetchRealmPublicKey(context.Background(), cfg.Keycloak.AuthURL, cfg.Keycloak.Realm)
		if err != nil {
			slog.Error("Failed to fetch keycloak realm public key", "error", err)
			os.Exit(1)
		}
	}
	verifier, err := auth.NewKeycloakVerifier(publicKey, cfg.Keycloak.ClientResource)
	if err != nil {
		slog.Error("Failed to initialize token verifier", "error", err)
		os.Exit(1)
	}
	roleGuard := auth.RequireRole(verifier, cfg.Keycloak.ClientRole)
	workerGuard := auth.APIKey(cfg.Ingestion.WorkerAPIKey)

	// 5. Initialize Services
	purgeRunner := ingestion.NewPurgeRunner(dbAdapter, reporter, cfg.Ingestion.PurgeQueueSize)
	ingestionSvc := ingestion.NewService(dbAdapter, purgeRunner)
	statisticsSvc := statistics.NewService(dbAdapter)
	relaySvc := relay.NewService(relay.NewClient(cfg.CDQ.BaseURL, cfg.CDQ.APIKey, reporter))

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode, cfg.Server.CORSAllowOrigin)
	ingestionSvc.RegisterRoutes(srv.Engine, workerGuard)
	statisticsSvc.RegisterRoutes(srv.Engine, roleGuard)
	relaySvc.RegisterRoutes(srv.Engine, roleGuard)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// The purge runner drains acknowledged purges before the group returns.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return purgeRunner.Run(groupCtx)
	})
	group.Go(func() error {
		return srv.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
