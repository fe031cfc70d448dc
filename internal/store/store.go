// Package store defines the persistence contract for transactions and
// categories, and the typed filter every backend turns into parameterized SQL.
package store

import (
	"context"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// Store hands out sessions. Implementations own a connection pool or client.
type Store interface {
	// Session acquires a handle scoped to one operation. Callers must call
	// Release on every path once they are done.
	Session(ctx context.Context) (Session, error)

	// Close releases the underlying pool or client.
	Close() error
}

// Session is an explicitly scoped database handle.
type Session interface {
	// InsertTransaction stores one row. tx.ID must be set.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactions returns rows matching f, newest first.
	ListTransactions(ctx context.Context, f Filter) ([]domain.Transaction, error)

	// FindCategoryByName looks a category up by canonical name and returns a
	// *domain.NotFoundError when it does not exist.
	FindCategoryByName(ctx context.Context, name string) (domain.Category, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// Release returns the handle to its pool.
	Release()
}

// Columns shared by the SQL backends.
const (
	colUserID        = "t.user_id"
	colDate          = "t.transaction_date"
	colKind          = "t.kind"
	colCategoryName  = "c.name"
	colPaymentMethod = "t.payment_method"
	colAmount        = "t.amount"
)

// NotFoundCategory builds the error returned for a missing category.
func NotFoundCategory(name string) error {
	return &domain.NotFoundError{Entity: "category", Key: name}
}
