// Package backend selects the Store implementation named by the configuration.
package backend

import (
	"github.com/kurihiro0119/github-mirror/internal/config"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
	"github.com/kurihiro0119/github-mirror/internal/storage"
	"github.com/kurihiro0119/github-mirror/internal/storage/bolt"
	"github.com/kurihiro0119/github-mirror/internal/storage/postgres"
	"github.com/kurihiro0119/github-mirror/internal/storage/sqlite"
)

// Open opens the store configured by cfg
func Open(cfg *config.Config) (storage.Store, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch cfg.StorageType {
	case config.StoragePostgres:
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
	case config.StorageBolt:
		store, err = bolt.NewBoltStorage(cfg.DatabasePath)
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.DatabasePath)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("", "failed to initialize "+cfg.StorageType+" storage", err)
	}
	return store, nil
}
