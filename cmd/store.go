package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-gate/internal/config"
	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/store"
	"github.com/kozaktomas/face-gate/internal/store/filestore"
	"github.com/kozaktomas/face-gate/internal/store/mariadb"
	"github.com/kozaktomas/face-gate/internal/store/postgres"
)

// loadConfig loads and validates the environment configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the signature store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		logger.InfoKV(ctx, "connecting to PostgreSQL")
		repo, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return repo, nil
	case config.BackendMariaDB:
		logger.InfoKV(ctx, "connecting to MariaDB")
		repo, err := mariadb.Open(ctx, cfg.MariaDB.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return repo, nil
	case config.BackendFile:
		s, err := filestore.New(cfg.Store.FacesDir, cfg.Store.Extension)
		if err != nil {
			return nil, fmt.Errorf("failed to open faces directory: %w", err)
		}
		logger.InfoKV(ctx, "using file store", "dir", s.Dir())
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
