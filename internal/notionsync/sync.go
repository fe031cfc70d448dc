// Package notionsync mirrors recorded expenses into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-tracker/internal/events"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/jomei/notionapi"
)

// BatchSize is the page size used when reading or writing in bulk.
const BatchSize = 100

// Syncer writes expense events as database pages. Pages are keyed by the
// Expense ID property so redelivered events are not duplicated.
type Syncer struct {
	client     NotionService
	databaseID string
}

// NewSyncer creates a Syncer for one database.
func NewSyncer(client NotionService, databaseID string) *Syncer {
	return &Syncer{client: client, databaseID: databaseID}
}

// Mirror creates the page for e unless one already exists.
func (s *Syncer) Mirror(ctx context.Context, e *events.ExpenseRecorded) error {
	log := logger.FromContext(ctx).With().Str("expense_id", e.ExpenseID).Logger()

	exists, err := s.exists(ctx, e.ExpenseID)
	if err != nil {
		return fmt.Errorf("Mirror: %w", err)
	}
	if exists {
		log.Debug().Msg("expense already mirrored to Notion")
		return nil
	}

	page, err := s.client.CreatePage(ctx, s.databaseID, ExpenseToNotionProperties(e))
	if err != nil {
		return fmt.Errorf("Mirror: %w", err)
	}
	log.Info().Str("page_id", string(page.ID)).Msg("created Notion page")
	return nil
}

func (s *Syncer) exists(ctx context.Context, expenseID string) (bool, error) {
	resp, err := s.client.QueryDatabase(ctx, s.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropExpenseID,
			RichText: &notionapi.TextFilterCondition{Equals: expenseID},
		},
		PageSize: 1,
	})
	if err != nil {
		return false, fmt.Errorf("lookup expense %s: %w", expenseID, err)
	}
	return len(resp.Results) > 0, nil
}

// BackfillResult counts what Backfill did.
type BackfillResult struct {
	Created int
	Skipped int
	Failed  int
}

// Backfill mirrors every stored row matching f that has no page yet. Single
// page failures are logged and counted; the run continues.
func (s *Syncer) Backfill(ctx context.Context, sess store.Session, f store.Filter, dryRun bool) (BackfillResult, error) {
	log := logger.FromContext(ctx)
	var res BackfillResult

	rows, err := sess.ListTransactions(ctx, f)
	if err != nil {
		return res, fmt.Errorf("Backfill: list transactions: %w", err)
	}

	pages, err := s.queryAllPages(ctx)
	if err != nil {
		return res, fmt.Errorf("Backfill: %w", err)
	}
	existing := make(map[string]bool, len(pages))
	for _, p := range pages {
		if id := expenseIDOf(p); id != "" {
			existing[id] = true
		}
	}

	log.Info().
		Int("rows", len(rows)).
		Int("notion_pages", len(pages)).
		Bool("dry_run", dryRun).
		Msg("starting Notion backfill")

	for i := range rows {
		tx := &rows[i]
		if existing[tx.ID] {
			res.Skipped++
			continue
		}
		if dryRun {
			log.Info().Str("expense_id", tx.ID).Msg("[DRY RUN] would create Notion page")
			res.Created++
			continue
		}
		if _, err := s.client.CreatePage(ctx, s.databaseID, ExpenseToNotionProperties(events.NewExpenseRecorded(tx))); err != nil {
			log.Warn().Err(err).Str("expense_id", tx.ID).Msg("failed to create Notion page")
			res.Failed++
			continue
		}
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Notion backfill completed")
	return res, nil
}

// queryAllPages follows the pagination cursor to the end.
func (s *Syncer) queryAllPages(ctx context.Context) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: BatchSize}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := s.client.QueryDatabase(ctx, s.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query pages: %w", err)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
