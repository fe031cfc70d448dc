package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateLayout is the boundary format for calendar dates.
const DateLayout = "2006-01-02"

// DefaultCurrency is the single currency every amount is denominated in.
const DefaultCurrency = "INR"

// Kind is the direction of money flow.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// ParseKind accepts "expense" or "income" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindExpense:
		return KindExpense, nil
	case KindIncome:
		return KindIncome, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Provenance records who decided the category of a transaction.
type Provenance string

const (
	ProvenanceAI       Provenance = "ai"
	ProvenanceFallback Provenance = "fallback"
	ProvenanceUser     Provenance = "user"
)

// AISuggested reports whether the category came from an automatic extractor.
func (p Provenance) AISuggested() bool {
	return p == ProvenanceAI || p == ProvenanceFallback
}

// Transaction is one stored expense or income row.
type Transaction struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CategoryID    string
	CategoryName  string // filled on read
	Kind          Kind
	PaymentMethod *string
	Merchant      *string
	Location      *string
	Date          civil.Date
	Provenance    Provenance
	Confidence    *float64 // only when AI-suggested
	CreatedAt     time.Time
}

// Validate checks the row-level invariants.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if t.Kind != KindExpense && t.Kind != KindIncome {
		return &ValidationError{Field: "kind", Err: fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)}
	}
	if !t.Date.IsValid() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	if t.CategoryID == "" {
		return &ValidationError{Field: "category", Msg: "category is required"}
	}
	if t.Confidence != nil && (*t.Confidence < 0 || *t.Confidence > 1) {
		return &ValidationError{Field: "confidence", Msg: "confidence must be within [0,1]"}
	}
	return nil
}

// Overrides are caller-supplied values that win over extracted ones.
type Overrides struct {
	Amount        *decimal.Decimal
	Date          *civil.Date
	Category      string
	Kind          Kind
	Description   string
	PaymentMethod string
	Merchant      string
	Location      string
}

// ParseDate parses a YYYY-MM-DD boundary date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, &ValidationError{Field: "date", Err: fmt.Errorf("%w: %q", ErrInvalidDate, s)}
	}
	return d, nil
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
