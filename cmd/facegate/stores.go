package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	dbpkg "github.com/BrandonDHaskell/facegate/internal/db"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/memory"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/postgres"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/sqlite"
)

type stores struct {
	identities store.IdentityStore
	audit      store.AuditStore
	close      func()
}

// openStores opens the configured backend, applying pending migrations.
func openStores(ctx context.Context) (*stores, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.Store.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		writer := dbpkg.NewWorker(db)
		logger.Info("using sqlite store", zap.String("path", cfg.Store.SQLitePath))
		return &stores{
			identities: sqlite.NewIdentityStore(db, writer),
			audit:      sqlite.NewAuditStore(db, writer),
			close: func() {
				writer.Close()
				_ = db.Close()
			},
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, postgres.Config{URL: cfg.Store.PostgresURL, MaxOpenConns: cfg.Store.MaxOpenConns})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("using postgres store")
		return &stores{
			identities: postgres.NewIdentityStore(db),
			audit:      postgres.NewAuditStore(db),
			close:      func() { _ = db.Close() },
		}, nil

	case "memory":
		logger.Warn("using in-memory store; enrollments and audit entries are lost on exit")
		return &stores{
			identities: memory.NewIdentityStore(),
			audit:      memory.NewAuditStore(),
			close:      func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// migrateStore applies pending migrations without opening the stores and
// returns the names of the ones applied.
func migrateStore(ctx context.Context) ([]string, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o750); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		db, err := sql.Open("sqlite", dbpkg.DSN(cfg.Store.SQLitePath))
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return dbpkg.Migrate(ctx, db)
	case "postgres":
		db, err := sql.Open("postgres", cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return postgres.Migrate(ctx, db)
	case "memory":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
