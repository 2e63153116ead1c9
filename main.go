package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/vaultops/vault-audit-engine/pkg/config"
	"github.com/vaultops/vault-audit-engine/pkg/database"
	"github.com/vaultops/vault-audit-engine/pkg/handlers"
	"github.com/vaultops/vault-audit-engine/pkg/middleware"
	"github.com/vaultops/vault-audit-engine/pkg/repositories"
	"github.com/vaultops/vault-audit-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // sync on shutdown is best-effort

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("upload_dir", cfg.UploadDir),
		zap.String("export_dir", cfg.ExportDir),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate needs database/sql; borrow a stdlib handle from the pool.
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration handle", zap.Error(err))
	}

	bagRepo := repositories.NewBagRepository(db)
	importRepo := repositories.NewImportRepository(db)

	trackingService := services.NewTrackingService(bagRepo, importRepo, logger)
	auditService := services.NewAuditService(trackingService, cfg.ExportDir, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuditHandler(auditService, cfg, logger).RegisterRoutes(mux)
	handlers.NewBagsHandler(trackingService, logger).RegisterRoutes(mux)
	handlers.NewLocationsHandler(trackingService, logger).RegisterRoutes(mux)
	handlers.NewTrackingHandler(trackingService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting vault-audit-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
