// Package sqlite is the embedded store backend built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Store is a store.Store over a single SQLite file.
type Store struct {
	db *sql.DB
}

// DSN builds a connection string for path with foreign keys and a busy timeout.
func DSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open migrates the database at path and returns a ready store.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := DSN(path)
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: sql open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Session checks out one connection from the pool.
func (s *Store) Session(ctx context.Context) (store.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("Session: acquire conn: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *sql.Conn
}

func (s *session) Release() {
	_ = s.conn.Close()
}

func (s *session) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	var conf sql.NullFloat64
	if tx.Confidence != nil {
		conf = sql.NullFloat64{Float64: *tx.Confidence, Valid: true}
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, amount, currency, description, category_id, kind,
			payment_method, merchant, location, transaction_date,
			ai_suggested, ai_confidence, provenance, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount.String(), tx.Currency, tx.Description, tx.CategoryID, string(tx.Kind),
		nullString(tx.PaymentMethod), nullString(tx.Merchant), nullString(tx.Location), tx.Date.String(),
		tx.Provenance.AISuggested(), conf, string(tx.Provenance), tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: exec: %w", err)
	}
	return nil
}

func (s *session) ListTransactions(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	cl := store.Build(f, store.Question{})
	q := `
		SELECT t.id, t.user_id, CAST(t.amount AS TEXT), t.currency, t.description,
		       t.category_id, c.name, t.kind, t.payment_method, t.merchant, t.location,
		       t.transaction_date, t.ai_confidence, t.provenance, t.created_at
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		` + cl.Where + `
		ORDER BY t.transaction_date DESC, t.created_at DESC
		` + cl.Limit

	rows, err := s.conn.QueryContext(ctx, q, store.TextValues(cl.Args)...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx                          domain.Transaction
			amount, kind, date, prov    string
			created                     string
			payment, merchant, location sql.NullString
			conf                        sql.NullFloat64
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &tx.Currency, &tx.Description,
			&tx.CategoryID, &tx.CategoryName, &kind, &payment, &merchant, &location,
			&date, &conf, &prov, &created); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ListTransactions: amount %q: %w", amount, err)
		}
		if tx.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("ListTransactions: date %q: %w", date, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			tx.CreatedAt = ts
		}
		tx.Kind = domain.Kind(kind)
		tx.Provenance = domain.Provenance(prov)
		tx.PaymentMethod = ptrString(payment)
		tx.Merchant = ptrString(merchant)
		tx.Location = ptrString(location)
		if conf.Valid {
			c := conf.Float64
			tx.Confidence = &c
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: rows: %w", err)
	}
	return out, nil
}

func (s *session) FindCategoryByName(ctx context.Context, name string) (domain.Category, error) {
	var c domain.Category
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(local_name, '') FROM categories WHERE LOWER(name) = LOWER(?)`,
		name,
	).Scan(&c.ID, &c.Name, &c.LocalName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, store.NotFoundCategory(name)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("FindCategoryByName: %w", err)
	}
	return c, nil
}

func (s *session) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, COALESCE(local_name, '') FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.LocalName); err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

var _ store.Store = (*Store)(nil)
