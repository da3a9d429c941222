package backend

import (
	"context"
	"fmt"

	"saldo/internal/log"
	"saldo/internal/memory"
	"saldo/internal/storage"
	"saldo/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
		Ping:       repo.Ping,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.NewRepository(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
		Ping:       repo.Ping,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = DefaultDataDirectory
	}

	store, err := memory.NewFromDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Repository: store,
		Ping:       func(context.Context) error { return nil },
	}, nil
}

// Migrate applies pending schema migrations for the persistent backends and
// returns the resulting schema version. The memory backend has no schema and
// reports version 0.
func Migrate(config Config) (version uint, err error) {
	if err := config.Validate(); err != nil {
		return 0, err
	}
	switch config.Type {
	case SQLiteBackend:
		if err := storage.RunMigrations(config.SQLiteDBPath); err != nil {
			return 0, err
		}
		version, _, err = storage.SchemaVersion(config.SQLiteDBPath)
	case PostgresBackend:
		if err := postgres.RunMigrations(config.PostgresURL); err != nil {
			return 0, err
		}
		version, _, err = postgres.SchemaVersion(config.PostgresURL)
	}
	return version, err
}
