package cli

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	_ "github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/shelf/store"
	"github.com/xraph/shelf/store/memory"
	"github.com/xraph/shelf/store/postgres"
	"github.com/xraph/shelf/store/sqlite"
)

// openStore constructs the configured composite store.
func openStore(cfg StorageConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "postgres":
		drv, err := grove.OpenDriver(context.Background(), "postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("shelfadm: open postgres: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("shelfadm: open postgres: %w", err)
		}
		return postgres.New(db), nil
	case "sqlite":
		drv, err := grove.OpenDriver(context.Background(), "sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("shelfadm: open sqlite: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("shelfadm: open sqlite: %w", err)
		}
		return sqlite.New(db), nil
	}
	return nil, fmt.Errorf("shelfadm: unknown storage backend %q", cfg.Backend)
}
