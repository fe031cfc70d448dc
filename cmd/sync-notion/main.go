package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/expense-tracker/internal/app"
	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/notionsync"
	"github.com/dvloznov/expense-tracker/internal/store"
)

func main() {
	log := logger.New()

	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	userID := flag.String("user", "", "User whose expenses are mirrored (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *startDateStr == "" || *endDateStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	startDate, err := domain.ParseDate(*startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date")
	}
	endDate, err := domain.ParseDate(*endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date")
	}
	if endDate.Before(startDate) {
		log.Fatal().
			Str("start_date", *startDateStr).
			Str("end_date", *endDateStr).
			Msg("Error: end-date must not be before start-date")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !cfg.NotionEnabled() {
		log.Fatal().Msg("NOTION_TOKEN and NOTION_DATABASE_ID are required")
	}
	if l, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat); err == nil {
		log = l
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	notion := notionsync.NewNotionClient(cfg.NotionToken)
	f := store.Filter{UserID: *userID, From: &startDate, To: &endDate}
	res, err := run(ctx, cfg, app.OpenStore, notion, f, *dryRun)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d skipped, %d failed.\n", res.Created, res.Skipped, res.Failed)
}

type storeOpener func(ctx context.Context, cfg *config.Config) (store.Store, error)

// run backfills f into Notion. The store and session are released before it
// returns.
func run(ctx context.Context, cfg *config.Config, open storeOpener, notion notionsync.NotionService, f store.Filter, dryRun bool) (notionsync.BackfillResult, error) {
	log := logger.FromContext(ctx)

	st, err := open(ctx, cfg)
	if err != nil {
		return notionsync.BackfillResult{}, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	sess, err := st.Session(ctx)
	if err != nil {
		return notionsync.BackfillResult{}, fmt.Errorf("acquire store session: %w", err)
	}
	defer sess.Release()

	syncer := notionsync.NewSyncer(notion, cfg.NotionDatabaseID)
	return syncer.Backfill(ctx, sess, f, dryRun)
}
