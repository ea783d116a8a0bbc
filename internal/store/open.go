package store

import (
	"context"
	"fmt"

	"github.com/ai-post-manager/internal/config"
	"github.com/ai-post-manager/internal/database"
	"github.com/rs/zerolog"
)

// Open builds the store selected by cfg.Store.Driver and prepares its backing
// storage: the posts file or object is created when missing, postgres
// migrations are applied. The returned close func releases any connections.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.DriverFile:
		s := NewFileStore(cfg.Store.FilePath, log)
		if err := s.Init(ctx); err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.DriverMemory:
		return NewMemoryStore(), noop, nil

	case config.DriverPostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		s := NewPostgresStore(db)
		return s, s.Close, nil

	case config.DriverS3:
		s, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 client: %w", err)
		}
		if err := s.Init(ctx); err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
