package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	ID     string `bigquery:"id"`      // REQUIRED
	UserID string `bigquery:"user_id"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED

	Description string `bigquery:"description"` // REQUIRED
	CategoryID  string `bigquery:"category_id"` // REQUIRED
	Kind        string `bigquery:"kind"`        // REQUIRED

	PaymentMethod bigquery.NullString `bigquery:"payment_method"`
	Merchant      bigquery.NullString `bigquery:"merchant"`
	Location      bigquery.NullString `bigquery:"location"`

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	AISuggested  bool                 `bigquery:"ai_suggested"`
	AIConfidence bigquery.NullFloat64 `bigquery:"ai_confidence"`
	Provenance   string               `bigquery:"provenance"`

	CreatedAt time.Time `bigquery:"created_at"`
}

// CategoryRow mirrors the categories table.
type CategoryRow struct {
	ID        string              `bigquery:"id"`
	Name      string              `bigquery:"name"`
	LocalName bigquery.NullString `bigquery:"local_name"`
}

// listRow is a transactions row joined with its category name.
type listRow struct {
	ID              string               `bigquery:"id"`
	UserID          string               `bigquery:"user_id"`
	Amount          *big.Rat             `bigquery:"amount"`
	Currency        string               `bigquery:"currency"`
	Description     string               `bigquery:"description"`
	CategoryID      string               `bigquery:"category_id"`
	CategoryName    string               `bigquery:"category_name"`
	Kind            string               `bigquery:"kind"`
	PaymentMethod   bigquery.NullString  `bigquery:"payment_method"`
	Merchant        bigquery.NullString  `bigquery:"merchant"`
	Location        bigquery.NullString  `bigquery:"location"`
	TransactionDate civil.Date           `bigquery:"transaction_date"`
	AIConfidence    bigquery.NullFloat64 `bigquery:"ai_confidence"`
	Provenance      string               `bigquery:"provenance"`
	CreatedAt       time.Time            `bigquery:"created_at"`
}
