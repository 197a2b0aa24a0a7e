package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/feedwarden/internal/config"
	"github.com/rickgao/feedwarden/internal/database"
	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/store/filestore"
	"github.com/rickgao/feedwarden/internal/store/pgstore"
	"github.com/rickgao/feedwarden/internal/store/sqlitestore"
)

// Store is an engine.Store that holds resources.
type Store interface {
	engine.Store
	Close() error
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendFile, "":
		s, err := filestore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("opened file store", "dir", cfg.Path)
		return s, nil

	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite store", "path", cfg.Path)
		return s, nil

	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("opened postgres store")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
