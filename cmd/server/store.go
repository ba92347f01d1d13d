package main

import (
	"context"
	"fmt"
	"log"

	"github.com/soaringjerry/Tally/internal/api"
	"github.com/soaringjerry/Tally/internal/config"
	dbstore "github.com/soaringjerry/Tally/internal/db"
)

// openStore picks the storage backend from cfg. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (api.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		st, conn, err := dbstore.OpenSQLite(cfg.Storage.SQLitePath, cfg.Storage.MigrationsDir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("storage: sqlite at %s", cfg.Storage.SQLitePath)
		return st, func() {
			if err := conn.Close(); err != nil {
				log.Printf("warning: failed to close sqlite db: %v", err)
			}
		}, nil
	case config.StoragePostgres:
		st, err := dbstore.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Printf("storage: postgres")
		return st, st.Close, nil
	default:
		log.Printf("storage: in-memory, data is lost on restart")
		return api.NewMemoryStore(), func() {}, nil
	}
}
