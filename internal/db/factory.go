package db

import (
	"context"
	"fmt"

	"github.com/asocial/asocial-backend/internal/config"
	"github.com/asocial/asocial-backend/internal/db/backends/memory"
	"github.com/asocial/asocial-backend/internal/db/backends/mongodb"
	"github.com/asocial/asocial-backend/internal/db/backends/postgres"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"go.uber.org/zap"
)

// NewDatabase creates a database instance for the configured backend. The
// returned database is not yet connected.
func NewDatabase(cfg config.DBConfig, logger *zap.SugaredLogger) (interfaces.Database, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	switch cfg.Type {
	case "", config.DBTypeMemory:
		logger.Infow("Using in-memory database")
		return memory.NewDatabase(logger), nil
	case config.DBTypeMongo:
		logger.Infow("Using MongoDB database", "host", cfg.Host, "database", cfg.Name)
		return mongodb.NewDatabase(cfg.ConnectionString(), cfg.Name, logger), nil
	case config.DBTypePostgres:
		logger.Infow("Using PostgreSQL database", "host", cfg.Host, "database", cfg.Name)
		return postgres.NewDatabase(cfg.ConnectionString(), logger), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// NewInMemoryDatabase creates a new in-memory database instance
func NewInMemoryDatabase(logger *zap.SugaredLogger) interfaces.Database {
	return memory.NewDatabase(logger)
}

// ConnectAndMigrate connects to the database and creates collections and indexes
func ConnectAndMigrate(ctx context.Context, db interfaces.Database, schemas []*interfaces.Schema) error {
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if !db.IsHealthy(ctx) {
		return fmt.Errorf("database health check failed")
	}

	if err := db.Migrate(ctx, schemas); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
