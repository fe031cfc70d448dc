// Package events carries notifications about recorded expenses to other
// processes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// ExpenseRecorded is published after a transaction row is inserted. It
// carries the full row so consumers need no database access.
type ExpenseRecorded struct {
	ExpenseID     string    `json:"expense_id"`
	UserID        string    `json:"user_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Kind          string    `json:"kind"`
	PaymentMethod *string   `json:"payment_method,omitempty"`
	Merchant      *string   `json:"merchant,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Date          string    `json:"date"`
	Provenance    string    `json:"provenance"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// NewExpenseRecorded builds the event for tx.
func NewExpenseRecorded(tx *domain.Transaction) *ExpenseRecorded {
	return &ExpenseRecorded{
		ExpenseID:     tx.ID,
		UserID:        tx.UserID,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		Description:   tx.Description,
		Category:      tx.CategoryName,
		Kind:          string(tx.Kind),
		PaymentMethod: tx.PaymentMethod,
		Merchant:      tx.Merchant,
		Location:      tx.Location,
		Date:          tx.Date.String(),
		Provenance:    string(tx.Provenance),
		RecordedAt:    tx.CreatedAt,
	}
}

// ToJSON encodes the event.
func (e *ExpenseRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseRecordedFromJSON decodes an event.
func ExpenseRecordedFromJSON(data []byte) (*ExpenseRecorded, error) {
	var e ExpenseRecorded
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher announces recorded expenses.
type Publisher interface {
	PublishExpenseRecorded(ctx context.Context, e *ExpenseRecorded) error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishExpenseRecorded(context.Context, *ExpenseRecorded) error { return nil }
