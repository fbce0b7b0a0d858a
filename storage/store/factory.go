package store

import (
	"context"
	"fmt"
	"log"

	"statsvc/config"
)

// New opens the backend selected by cfg.Driver and ensures the schema exists
func New(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres, "":
		s, err = NewPostgresStore(ctx, cfg, logger)
	case config.DriverSQLite:
		s, err = NewSQLiteStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
