package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/store/bigquery"
	"github.com/dvloznov/expense-tracker/internal/store/postgres"
	"github.com/dvloznov/expense-tracker/internal/store/sqlite"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	backend := flag.String("backend", cfg.StoreBackend, "Store backend: sqlite, postgres or bigquery (or set STORE_BACKEND)")
	flag.Parse()
	cfg.StoreBackend = *backend

	if err := cfg.Validate(); err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Invalid configuration")
	}
	log, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to create logger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := migrate(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Migration failed")
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("Schema is up to date")
}

// migrate applies the embedded schema of the configured backend.
func migrate(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Applying SQLite migrations")
		return sqlite.RunMigrations(sqlite.DSN(cfg.SQLitePath))
	case config.BackendPostgres:
		log.Info().Msg("Applying PostgreSQL migrations")
		return postgres.RunMigrations(cfg.DatabaseURL)
	case config.BackendBigQuery:
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Ensuring BigQuery schema")
		st, err := bigquery.Open(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.EnsureSchema(ctx)
	}
	return fmt.Errorf("unknown backend %q", cfg.StoreBackend)
}
