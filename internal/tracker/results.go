package tracker

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/insights"
	"github.com/dvloznov/expense-tracker/internal/period"
	"github.com/shopspring/decimal"
)

// AddExpenseResult is returned by AddExpense.
type AddExpenseResult struct {
	Success           bool             `json:"success"`
	ExpenseID         string           `json:"expenseId,omitempty"`
	SuggestedCategory string           `json:"suggestedCategory,omitempty"`
	ExtractedAmount   *decimal.Decimal `json:"extractedAmount,omitempty"`
	Message           string           `json:"message"`

	// Err is the classified failure behind Message.
	Err error `json:"-"`
}

// ViewFilters narrows ViewExpenses. Zero values are ignored.
type ViewFilters struct {
	From          *civil.Date
	To            *civil.Date
	Category      string
	Kind          domain.Kind
	PaymentMethod string
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Limit         int
}

// Expense is the boundary view of a stored transaction.
type Expense struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Kind          domain.Kind     `json:"kind"`
	PaymentMethod *string         `json:"paymentMethod,omitempty"`
	Merchant      *string         `json:"merchant,omitempty"`
	Location      *string         `json:"location,omitempty"`
	Date          civil.Date      `json:"date"`
	AISuggested   bool            `json:"aiSuggested"`
	Confidence    *float64        `json:"confidence,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newExpense(tx domain.Transaction) Expense {
	return Expense{
		ID:            tx.ID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Description:   tx.Description,
		Category:      tx.CategoryName,
		Kind:          tx.Kind,
		PaymentMethod: tx.PaymentMethod,
		Merchant:      tx.Merchant,
		Location:      tx.Location,
		Date:          tx.Date,
		AISuggested:   tx.Provenance.AISuggested(),
		Confidence:    tx.Confidence,
		CreatedAt:     tx.CreatedAt,
	}
}

// ViewSummary condenses the listed rows.
type ViewSummary struct {
	Count          int             `json:"count"`
	TotalExpense   decimal.Decimal `json:"totalExpense"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	AverageExpense decimal.Decimal `json:"averageExpense"`
	TopCategory    string          `json:"topCategory,omitempty"`
}

// ViewResult is returned by ViewExpenses.
type ViewResult struct {
	Success  bool        `json:"success"`
	Expenses []Expense   `json:"expenses"`
	Summary  ViewSummary `json:"summary"`
	Insights []string    `json:"insights"`
	Message  string      `json:"message,omitempty"`

	Err error `json:"-"`
}

// InsightsRequest selects the analysed period and optional sections.
type InsightsRequest struct {
	Type  string
	Start *civil.Date
	End   *civil.Date

	IncludeComparison      bool
	IncludeRecommendations bool
}

// NewInsightsRequest returns a request for kind with both optional sections
// enabled.
func NewInsightsRequest(kind string) InsightsRequest {
	return InsightsRequest{Type: kind, IncludeComparison: true, IncludeRecommendations: true}
}

// Report holds the deterministic part of an insights response.
type Report struct {
	Window           period.Window    `json:"period"`
	Current          insights.Result  `json:"current"`
	Previous         *insights.Result `json:"previous,omitempty"`
	ExpenseChangePct *float64         `json:"expenseChangePct,omitempty"`
	Highlights       []string         `json:"highlights"`
	ComparisonFailed bool             `json:"comparisonFailed,omitempty"`
}

// InsightsResult is returned by GetInsights.
type InsightsResult struct {
	Success         bool             `json:"success"`
	Insights        *Report          `json:"insights,omitempty"`
	Recommendations []string         `json:"recommendations"`
	FinancialHealth *insights.Health `json:"financialHealth,omitempty"`
	Message         string           `json:"message,omitempty"`

	Err error `json:"-"`
}
