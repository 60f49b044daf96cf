// Package store selects and opens the configured core.DocumentStore.
package store

import (
	"context"
	"fmt"

	"billing-engine/internal/config"
	"billing-engine/internal/core"
	"billing-engine/internal/db"
	"billing-engine/internal/store/gormstore"
	"billing-engine/internal/store/memory"
	"billing-engine/internal/store/postgres"
)

// Store is a DocumentStore that can also create its own schema.
type Store interface {
	core.DocumentStore
	Migrate(ctx context.Context) error
}

// Open returns the store named by cfg.StoreDriver and a function that
// releases its connections.
func Open(ctx context.Context, cfg config.Config) (Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memoryStore{memory.New()}, func() {}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil

	case config.DriverSQLite, config.DriverGormPostgres:
		dialect, dsn := "sqlite", cfg.SQLitePath
		if cfg.StoreDriver == config.DriverGormPostgres {
			dialect, dsn = "postgres", cfg.DatabaseURL
		}
		gdb, err := db.OpenGorm(dialect, dsn, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if dialect == "sqlite" {
			sqlDB.SetMaxOpenConns(1)
		}
		return gormstore.New(gdb), func() { _ = sqlDB.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q (want memory, postgres, sqlite or gorm-postgres)", cfg.StoreDriver)
}

// memoryStore has no schema.
type memoryStore struct {
	*memory.Store
}

func (memoryStore) Migrate(context.Context) error { return nil }
