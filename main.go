package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/adapters/connector"
	"github.com/datapanel-io/datapanel-engine/pkg/config"
	"github.com/datapanel-io/datapanel-engine/pkg/database"
	"github.com/datapanel-io/datapanel-engine/pkg/handlers"
	"github.com/datapanel-io/datapanel-engine/pkg/middleware"
	"github.com/datapanel-io/datapanel-engine/pkg/preview"
	"github.com/datapanel-io/datapanel-engine/pkg/repositories"
	"github.com/datapanel-io/datapanel-engine/pkg/services"
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
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.Int("stale_after_hours", cfg.Registry.StaleAfterHours),
	)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate needs a database/sql handle.
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	// Shared per-id locks: registry edits and sync completion writes
	// serialize on the same instance.
	locks := services.NewSourceLocks()
	repo := repositories.NewSourceRepository(db)

	snapshots := preview.NewStore(cfg.Preview.MaxSnapshotRows)
	sampler := connector.NewRowSampler(logger)
	previews := preview.NewService(snapshots, sampler, cfg.Preview.MaxSnapshotRows, cfg.Preview.DefaultRowCount, logger)

	sourceService := services.NewSourceService(repo, locks, snapshots, cfg.Registry.StaleAfter(), logger)
	orchestrator := services.NewSyncOrchestrator(repo, connector.NewFactory(logger), locks, cfg.Sync, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(db, cfg.Version).RegisterRoutes(mux)
	handlers.NewSourcesHandler(sourceService, orchestrator, previews, logger).RegisterRoutes(mux)

	handler := middleware.Recoverer(logger)(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting datapanel-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
