// Package bigquery is the analytics store backend. It shares one BigQuery
// client across sessions and binds every filter value as a named parameter.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable = "transactions"
	categoriesTable   = "categories"
)

// Store is a store.Store over one BigQuery dataset.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// Open creates the shared client for projectID/datasetID.
func Open(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("Open: creating client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureSchema creates the dataset and tables when missing and seeds the
// categories table on first creation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ds := s.client.DatasetInProject(s.projectID, s.datasetID)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: "asia-south1"}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureSchema: create dataset: %w", err)
	}

	txSchema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureSchema: infer transactions schema: %w", err)
	}
	txMeta := &bigquery.TableMetadata{
		Schema:           txSchema,
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.MonthPartitioningType, Field: "transaction_date"},
		Clustering:       &bigquery.Clustering{Fields: []string{"user_id"}},
	}
	if err := ds.Table(transactionsTable).Create(ctx, txMeta); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureSchema: create transactions: %w", err)
	}

	catSchema, err := bigquery.InferSchema(CategoryRow{})
	if err != nil {
		return fmt.Errorf("EnsureSchema: infer categories schema: %w", err)
	}
	err = ds.Table(categoriesTable).Create(ctx, &bigquery.TableMetadata{Schema: catSchema})
	if isAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureSchema: create categories: %w", err)
	}

	rows := make([]*CategoryRow, len(domain.SeedCategories))
	for i, c := range domain.SeedCategories {
		rows[i] = &CategoryRow{ID: c.ID, Name: c.Name, LocalName: bigquery.NullString{StringVal: c.LocalName, Valid: c.LocalName != ""}}
	}
	if err := ds.Table(categoriesTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("EnsureSchema: seed categories: %w", err)
	}
	return nil
}

// Session returns a handle over the shared client. Release is a no-op.
func (s *Store) Session(ctx context.Context) (store.Session, error) {
	return &session{s: s}, nil
}

type session struct {
	s *Store
}

func (*session) Release() {}

func (ss *session) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", ss.s.projectID, ss.s.datasetID, name)
}

func (ss *session) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	row := toRow(tx)
	inserter := ss.s.client.DatasetInProject(ss.s.projectID, ss.s.datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, []*TransactionRow{row}); err != nil {
		return fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}
	return nil
}

func (ss *session) ListTransactions(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	cl := store.Build(f, store.Named{})
	q := ss.s.client.Query(`
		SELECT
			t.id, t.user_id, t.amount, t.currency, t.description, t.category_id,
			c.name AS category_name, t.kind, t.payment_method, t.merchant, t.location,
			t.transaction_date, t.ai_confidence, t.provenance, t.created_at
		FROM ` + ss.table(transactionsTable) + ` t
		JOIN ` + ss.table(categoriesTable) + ` c ON c.id = t.category_id
		` + cl.Where + `
		ORDER BY t.transaction_date DESC, t.created_at DESC
		` + cl.Limit)
	q.Parameters = queryParameters(cl.Args)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var out []domain.Transaction
	for {
		var r listRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		out = append(out, fromListRow(r))
	}
	return out, nil
}

func (ss *session) FindCategoryByName(ctx context.Context, name string) (domain.Category, error) {
	q := ss.s.client.Query(`SELECT id, name, local_name FROM ` + ss.table(categoriesTable) + ` WHERE LOWER(name) = LOWER(@name) LIMIT 1`)
	q.Parameters = []bigquery.QueryParameter{{Name: "name", Value: name}}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Category{}, fmt.Errorf("FindCategoryByName: query read: %w", err)
	}
	var r CategoryRow
	err = it.Next(&r)
	if err == iterator.Done {
		return domain.Category{}, store.NotFoundCategory(name)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("FindCategoryByName: iter next: %w", err)
	}
	return domain.Category{ID: r.ID, Name: r.Name, LocalName: r.LocalName.StringVal}, nil
}

func (ss *session) ListCategories(ctx context.Context) ([]domain.Category, error) {
	q := ss.s.client.Query(`SELECT id, name, local_name FROM ` + ss.table(categoriesTable) + ` ORDER BY name`)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	var out []domain.Category
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		out = append(out, domain.Category{ID: r.ID, Name: r.Name, LocalName: r.LocalName.StringVal})
	}
	return out, nil
}

// queryParameters maps filter args onto BigQuery's native parameter types.
func queryParameters(args []store.Arg) []bigquery.QueryParameter {
	params := make([]bigquery.QueryParameter, len(args))
	for i, a := range args {
		v := a.Value
		switch tv := v.(type) {
		case decimal.Decimal:
			v = tv.Rat()
		case domain.Kind:
			v = string(tv)
		case civil.Date:
			v = tv
		}
		params[i] = bigquery.QueryParameter{Name: a.Name, Value: v}
	}
	return params
}

func toRow(tx *domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		ID:              tx.ID,
		UserID:          tx.UserID,
		Amount:          tx.Amount.Rat(),
		Currency:        tx.Currency,
		Description:     tx.Description,
		CategoryID:      tx.CategoryID,
		Kind:            string(tx.Kind),
		PaymentMethod:   nullString(tx.PaymentMethod),
		Merchant:        nullString(tx.Merchant),
		Location:        nullString(tx.Location),
		TransactionDate: tx.Date,
		AISuggested:     tx.Provenance.AISuggested(),
		Provenance:      string(tx.Provenance),
		CreatedAt:       tx.CreatedAt,
	}
	if tx.Confidence != nil {
		row.AIConfidence = bigquery.NullFloat64{Float64: *tx.Confidence, Valid: true}
	}
	return row
}

func fromListRow(r listRow) domain.Transaction {
	tx := domain.Transaction{
		ID:            r.ID,
		UserID:        r.UserID,
		Currency:      r.Currency,
		Description:   r.Description,
		CategoryID:    r.CategoryID,
		CategoryName:  r.CategoryName,
		Kind:          domain.Kind(r.Kind),
		PaymentMethod: ptrString(r.PaymentMethod),
		Merchant:      ptrString(r.Merchant),
		Location:      ptrString(r.Location),
		Date:          r.TransactionDate,
		Provenance:    domain.Provenance(r.Provenance),
		CreatedAt:     r.CreatedAt,
	}
	if r.Amount != nil {
		tx.Amount = decimal.NewFromBigRat(r.Amount, 2)
	}
	if r.AIConfidence.Valid {
		c := r.AIConfidence.Float64
		tx.Confidence = &c
	}
	return tx
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func ptrString(ns bigquery.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.StringVal
	return &v
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

var _ store.Store = (*Store)(nil)
