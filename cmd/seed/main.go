// cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/config"
	"github.com/libranexus/discovery/internal/fixture"
	"github.com/libranexus/discovery/internal/logging"
)

func main() {
	path := flag.String("fixture", "", "library JSON to load (defaults to the built-in sample)")
	migrateOnly := flag.Bool("migrate-only", false, "create tables without loading data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := seed(ctx, cfg.Store.DatabaseURL, *path, *migrateOnly); err != nil {
		logging.Fatal().Err(err).Msg("seeding failed")
	}
}

func seed(ctx context.Context, dsn, path string, migrateOnly bool) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	books := catalog.NewPostgresStore(db)
	txns := circulation.NewPostgresStore(db)
	if err := books.Migrate(ctx); err != nil {
		return err
	}
	if err := txns.Migrate(ctx); err != nil {
		return err
	}
	if migrateOnly {
		logging.Info().Msg("schema migrated")
		return nil
	}

	lib, err := fixture.Load(path)
	if err != nil {
		return err
	}
	if err := books.Insert(ctx, lib.Books...); err != nil {
		return err
	}
	if err := txns.Insert(ctx, lib.Transactions...); err != nil {
		return err
	}

	logging.Info().
		Int("books", len(lib.Books)).
		Int("transactions", len(lib.Transactions)).
		Msg("library seeded")
	return nil
}
