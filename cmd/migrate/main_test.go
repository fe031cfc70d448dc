package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/store/sqlite"
	"github.com/rs/zerolog"
)

func TestMigrate_SQLiteSeedsCategories(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "nested", "expenses.db"),
	}

	// Running twice must be a no-op the second time.
	for i := 0; i < 2; i++ {
		if err := migrate(ctx, cfg, zerolog.Nop()); err != nil {
			t.Fatalf("migrate() run %d error = %v", i+1, err)
		}
	}

	st, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer st.Close()

	sess, err := st.Session(ctx)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	defer sess.Release()

	cats, err := sess.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != len(domain.SeedCategories) {
		t.Errorf("got %d categories, want %d", len(cats), len(domain.SeedCategories))
	}
}

func TestMigrate_UnknownBackend(t *testing.T) {
	cfg := &config.Config{StoreBackend: "oracle"}
	if err := migrate(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("migrate() expected error for an unknown backend")
	}
}
