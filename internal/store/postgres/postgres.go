// Package postgres is the store backend for PostgreSQL, built on pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is a store.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("Open: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Session acquires one pooled connection.
func (s *Store) Session(ctx context.Context) (store.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("Session: acquire: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *pgxpool.Conn
}

func (s *session) Release() {
	s.conn.Release()
}

func (s *session) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO transactions (
			id, user_id, amount, currency, description, category_id, kind,
			payment_method, merchant, location, transaction_date,
			ai_suggested, ai_confidence, provenance, created_at
		) VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11::date, $12, $13, $14, $15)`,
		tx.ID, tx.UserID, tx.Amount.String(), tx.Currency, tx.Description, tx.CategoryID, string(tx.Kind),
		tx.PaymentMethod, tx.Merchant, tx.Location, tx.Date.String(),
		tx.Provenance.AISuggested(), tx.Confidence, string(tx.Provenance), tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: exec: %w", err)
	}
	return nil
}

// The placeholders built by store.Build compare text parameters against
// DATE and NUMERIC columns; Postgres infers the parameter types from the
// column side.
func (s *session) ListTransactions(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	cl := store.Build(f, store.Dollar{})
	q := `
		SELECT t.id::text, t.user_id, t.amount::text, t.currency, t.description,
		       t.category_id, c.name, t.kind, t.payment_method, t.merchant, t.location,
		       to_char(t.transaction_date, 'YYYY-MM-DD'), t.ai_confidence, t.provenance, t.created_at
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		` + cl.Where + `
		ORDER BY t.transaction_date DESC, t.created_at DESC
		` + cl.Limit

	rows, err := s.conn.Query(ctx, q, store.TextValues(cl.Args)...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx                       domain.Transaction
			amount, kind, date, prov string
			created                  time.Time
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &tx.Currency, &tx.Description,
			&tx.CategoryID, &tx.CategoryName, &kind, &tx.PaymentMethod, &tx.Merchant, &tx.Location,
			&date, &tx.Confidence, &prov, &created); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ListTransactions: amount %q: %w", amount, err)
		}
		if tx.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("ListTransactions: date %q: %w", date, err)
		}
		tx.Kind = domain.Kind(kind)
		tx.Provenance = domain.Provenance(prov)
		tx.CreatedAt = created
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: rows: %w", err)
	}
	return out, nil
}

func (s *session) FindCategoryByName(ctx context.Context, name string) (domain.Category, error) {
	var c domain.Category
	err := s.conn.QueryRow(ctx,
		`SELECT id, name, COALESCE(local_name, '') FROM categories WHERE LOWER(name) = LOWER($1)`,
		name,
	).Scan(&c.ID, &c.Name, &c.LocalName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, store.NotFoundCategory(name)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("FindCategoryByName: %w", err)
	}
	return c, nil
}

func (s *session) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, name, COALESCE(local_name, '') FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name, &c.LocalName)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListCategories: collect: %w", err)
	}
	return cats, nil
}

var _ store.Store = (*Store)(nil)
