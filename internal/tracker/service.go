// Package tracker exposes the three user-facing operations: adding an
// expense, viewing expenses and getting insights. Every operation returns a
// tagged result and never an error.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/insights"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/period"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultViewLimit caps ViewExpenses when the caller gives no limit.
const DefaultViewLimit = 50

// Service wires the store, ingestion and insight components.
type Service struct {
	store     store.Store
	ingest    *ingest.Service
	advisor   *insights.Advisor
	log       zerolog.Logger
	loc       *time.Location
	now       func() time.Time
	viewLimit int
}

// Config holds optional Service settings.
type Config struct {
	Location  *time.Location
	Now       func() time.Time
	ViewLimit int
}

// NewService creates a Service.
func NewService(st store.Store, in *ingest.Service, adv *insights.Advisor, log zerolog.Logger, cfg Config) *Service {
	s := &Service{
		store:     st,
		ingest:    in,
		advisor:   adv,
		log:       log,
		loc:       cfg.Location,
		now:       cfg.Now,
		viewLimit: cfg.ViewLimit,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.viewLimit <= 0 {
		s.viewLimit = DefaultViewLimit
	}
	return s
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

// AddExpense records text as one transaction, applying ov on top of the
// extracted fields.
func (s *Service) AddExpense(ctx context.Context, userID, text string, ov domain.Overrides) AddExpenseResult {
	log := logger.ForUser(s.log, userID)

	sess, err := s.store.Session(ctx)
	if err != nil {
		log.Error().Err(err).Msg("AddExpense: acquire session")
		return addFailure(domain.Dependency("database", err))
	}
	defer sess.Release()

	rec, err := s.ingest.Record(ctx, sess, userID, text, ov)
	if err != nil {
		log.Error().Err(err).Msg("AddExpense failed")
		return addFailure(err)
	}

	tx := rec.Transaction
	amount := rec.Extracted.Amount
	return AddExpenseResult{
		Success:           true,
		ExpenseID:         tx.ID,
		SuggestedCategory: rec.Extracted.Category,
		ExtractedAmount:   &amount,
		Message: fmt.Sprintf("Recorded %s of %s under %s on %s.",
			tx.Kind, domain.FormatINR(tx.Amount), tx.CategoryName, tx.Date),
	}
}

// ViewExpenses lists the user's transactions with a summary and highlights.
func (s *Service) ViewExpenses(ctx context.Context, userID string, vf ViewFilters) ViewResult {
	log := logger.ForUser(s.log, userID)

	f := store.Filter{
		UserID:        userID,
		From:          vf.From,
		To:            vf.To,
		Kind:          vf.Kind,
		PaymentMethod: vf.PaymentMethod,
		MinAmount:     vf.MinAmount,
		MaxAmount:     vf.MaxAmount,
		Limit:         vf.Limit,
	}
	if f.Limit == 0 {
		f.Limit = s.viewLimit
	}
	if vf.Category != "" {
		name, ok := domain.CanonicalCategory(vf.Category)
		if !ok {
			return viewFailure(store.NotFoundCategory(vf.Category))
		}
		f.Category = name
	}
	if err := f.Validate(); err != nil {
		return viewFailure(err)
	}

	sess, err := s.store.Session(ctx)
	if err != nil {
		log.Error().Err(err).Msg("ViewExpenses: acquire session")
		return viewFailure(domain.Dependency("database", err))
	}
	defer sess.Release()

	rows, err := sess.ListTransactions(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("ViewExpenses: list transactions")
		return viewFailure(domain.Dependency("database", err))
	}

	res := ViewResult{Success: true, Expenses: make([]Expense, 0, len(rows))}
	for _, tx := range rows {
		res.Expenses = append(res.Expenses, newExpense(tx))
	}

	agg := insights.Summarize(spanOf(rows), rows)
	res.Summary = summarize(agg, rows)
	res.Insights = insights.Highlights(agg, nil)
	if len(rows) == 0 {
		res.Message = "No expenses found for the given filters."
	}
	return res
}

func summarize(agg insights.Result, rows []domain.Transaction) ViewSummary {
	sum := ViewSummary{
		Count:          len(rows),
		TotalExpense:   agg.TotalExpense,
		TotalIncome:    agg.TotalIncome,
		AverageExpense: decimal.Zero,
	}
	var expenses int64
	for _, tx := range rows {
		if tx.Kind == domain.KindExpense {
			expenses++
		}
	}
	if expenses > 0 {
		sum.AverageExpense = agg.TotalExpense.Div(decimal.NewFromInt(expenses)).Round(2)
	}
	if top, ok := agg.TopCategory(); ok {
		sum.TopCategory = top.Category
	}
	return sum
}

// spanOf returns the smallest range covering rows.
func spanOf(rows []domain.Transaction) period.Range {
	var r period.Range
	for i, tx := range rows {
		if i == 0 || tx.Date.Before(r.Start) {
			r.Start = tx.Date
		}
		if i == 0 || tx.Date.After(r.End) {
			r.End = tx.Date
		}
	}
	return r
}

// GetInsights aggregates the requested period, scores it and, when asked,
// compares it with the previous period and fetches recommendations. A failed
// comparison or recommendation call degrades that section only.
func (s *Service) GetInsights(ctx context.Context, userID string, req InsightsRequest) InsightsResult {
	log := logger.ForUser(s.log, userID).With().Str("analysis_type", req.Type).Logger()

	if userID == "" {
		return insightsFailure(&domain.ValidationError{Field: "user_id", Msg: "user id is required"})
	}
	kind, err := period.ParseKind(req.Type)
	if err != nil {
		return insightsFailure(err)
	}
	win, err := period.Resolve(kind, req.Start, req.End, s.today())
	if err != nil {
		return insightsFailure(err)
	}

	sess, err := s.store.Session(ctx)
	if err != nil {
		log.Error().Err(err).Msg("GetInsights: acquire session")
		return insightsFailure(domain.Dependency("database", err))
	}
	defer sess.Release()

	current, err := insights.Aggregate(ctx, sess, userID, win.Current)
	if err != nil {
		log.Error().Err(err).Msg("GetInsights: aggregate current period")
		return insightsFailure(err)
	}

	rep := &Report{Window: win, Current: current}
	if req.IncludeComparison {
		prev, err := insights.Aggregate(ctx, sess, userID, win.Previous)
		if err != nil {
			log.Warn().Err(err).Msg("GetInsights: comparison period unavailable")
			rep.ComparisonFailed = true
		} else {
			rep.Previous = &prev
			if pct, ok := insights.ExpenseChange(current, prev); ok {
				rep.ExpenseChangePct = &pct
			}
		}
	}
	rep.Highlights = insights.Highlights(current, rep.Previous)

	health := insights.Score(current)
	res := InsightsResult{
		Success:         true,
		Insights:        rep,
		Recommendations: []string{},
		FinancialHealth: &health,
	}
	if req.IncludeRecommendations && s.advisor != nil {
		res.Recommendations = s.advisor.Recommend(ctx, current, rep.Previous)
	}

	log.Info().
		Str("period", win.Current.String()).
		Int("score", health.Score).
		Int("transactions", current.Transactions).
		Msg("insights generated")
	return res
}

// Categories returns the seeded categories.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	sess, err := s.store.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", domain.Dependency("database", err))
	}
	defer sess.Release()

	cats, err := sess.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", domain.Dependency("database", err))
	}
	return cats, nil
}

func addFailure(err error) AddExpenseResult {
	return AddExpenseResult{Message: Message(err), Err: err}
}

func viewFailure(err error) ViewResult {
	return ViewResult{Expenses: []Expense{}, Insights: []string{}, Message: Message(err), Err: err}
}

func insightsFailure(err error) InsightsResult {
	return InsightsResult{Recommendations: []string{}, Message: Message(err), Err: err}
}

// Message renders err for an end user.
func Message(err error) string {
	var (
		ve  *domain.ValidationError
		nf  *domain.NotFoundError
		dep *domain.DependencyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		if nf.Entity == "category" {
			return fmt.Sprintf("Category %q does not exist. Available categories: %v", nf.Key, domain.CategoryNames())
		}
		return nf.Error()
	case errors.As(err, &ve):
		return "Invalid input: " + strings.TrimPrefix(ve.Error(), "validation failed: ")
	case errors.As(err, &dep):
		return fmt.Sprintf("The %s is unavailable right now. Please try again later.", dep.Dependency)
	}
	return "Something went wrong. Please try again later."
}
