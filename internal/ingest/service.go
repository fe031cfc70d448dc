// Package ingest turns a free-text entry into a stored transaction.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/events"
	"github.com/dvloznov/expense-tracker/internal/llm"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service records expenses. It holds no per-request state.
type Service struct {
	categorizer llm.Categorizer
	publisher   events.Publisher
	log         zerolog.Logger
	currency    string
	loc         *time.Location
	now         func() time.Time
	newID       func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLocation sets the zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithCurrency sets the currency stamped on new rows.
func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = code }
}

// NewService creates a Service. A nil categorizer always falls back; a nil
// publisher drops events.
func NewService(c llm.Categorizer, p events.Publisher, log zerolog.Logger, opts ...Option) *Service {
	if c == nil {
		c = llm.NewModelCategorizer(llm.Disabled{})
	}
	if p == nil {
		p = events.Noop{}
	}
	s := &Service{
		categorizer: c,
		publisher:   p,
		log:         log,
		currency:    domain.DefaultCurrency,
		loc:         time.Local,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Recorded is the outcome of a successful Record.
type Recorded struct {
	Transaction domain.Transaction
	// Extracted is what the categorizer or the fallback parser read from the
	// text, before overrides.
	Extracted domain.Extraction
}

// Record extracts, resolves, validates and inserts one transaction through
// sess. The caller owns sess. Publishing the event is best-effort.
func (s *Service) Record(ctx context.Context, sess store.Session, userID, text string, ov domain.Overrides) (Recorded, error) {
	log := logger.ForUser(s.log, userID)

	if strings.TrimSpace(userID) == "" {
		return Recorded{}, &domain.ValidationError{Field: "user_id", Msg: "user id is required"}
	}
	if strings.TrimSpace(text) == "" && ov.Amount == nil {
		return Recorded{}, &domain.ValidationError{Field: "text", Msg: "expense text is required"}
	}

	ext, prov := s.extract(ctx, log, text)

	tx := domain.Transaction{
		ID:          s.newID(),
		UserID:      userID,
		Amount:      ext.Amount,
		Currency:    s.currency,
		Description: ext.Description,
		Kind:        ext.Kind,
		Merchant:    ext.Merchant,
		Date:        civil.DateOf(s.now().In(s.loc)),
		Provenance:  prov,
		CreatedAt:   s.now().UTC(),
	}
	categoryName := ext.Category

	if ov.Amount != nil {
		tx.Amount = *ov.Amount
	}
	if ov.Date != nil {
		tx.Date = *ov.Date
	}
	if ov.Kind != "" {
		tx.Kind = ov.Kind
	}
	if d := strings.TrimSpace(ov.Description); d != "" {
		tx.Description = d
	}
	if p := domain.StringPtr(ov.PaymentMethod); p != nil {
		tx.PaymentMethod = p
	}
	if m := domain.StringPtr(ov.Merchant); m != nil {
		tx.Merchant = m
	}
	if l := domain.StringPtr(ov.Location); l != nil {
		tx.Location = l
	}
	if c := strings.TrimSpace(ov.Category); c != "" {
		categoryName = c
		tx.Provenance = domain.ProvenanceUser
	}
	if tx.Provenance.AISuggested() {
		conf := ext.Confidence
		tx.Confidence = &conf
	}

	cat, err := sess.FindCategoryByName(ctx, categoryName)
	if err != nil {
		return Recorded{}, fmt.Errorf("Record: resolve category: %w", domain.Dependency("database", err))
	}
	tx.CategoryID = cat.ID
	tx.CategoryName = cat.Name

	if err := tx.Validate(); err != nil {
		return Recorded{}, fmt.Errorf("Record: %w", err)
	}

	if err := sess.InsertTransaction(ctx, &tx); err != nil {
		return Recorded{}, fmt.Errorf("Record: insert transaction: %w", domain.Dependency("database", err))
	}

	log.Info().
		Str("expense_id", tx.ID).
		Str("category", tx.CategoryName).
		Str("provenance", string(tx.Provenance)).
		Msg("expense recorded")

	if err := s.publisher.PublishExpenseRecorded(ctx, events.NewExpenseRecorded(&tx)); err != nil {
		log.Warn().Err(err).Str("expense_id", tx.ID).Msg("failed to publish expense recorded event")
	}

	return Recorded{Transaction: tx, Extracted: ext}, nil
}

// extract runs the categorizer and falls back to the deterministic parser on
// any failure.
func (s *Service) extract(ctx context.Context, log zerolog.Logger, text string) (domain.Extraction, domain.Provenance) {
	ext, err := s.categorizer.Categorize(ctx, text)
	if err == nil {
		return ext, domain.ProvenanceAI
	}
	log.Warn().Err(err).Msg("categorizer unavailable, using fallback parser")
	return ParseFallback(text), domain.ProvenanceFallback
}
