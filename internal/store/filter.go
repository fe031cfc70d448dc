package store

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxLimit caps the number of rows a single listing may return.
const MaxLimit = 1000

// Filter selects transactions of one user. Zero-valued fields are ignored.
type Filter struct {
	UserID        string
	From          *civil.Date
	To            *civil.Date
	Kind          domain.Kind
	Category      string
	PaymentMethod string
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Limit         int // 0 means no limit
}

// Validate rejects filters that cannot be satisfied or are unsafe to run.
func (f Filter) Validate() error {
	if strings.TrimSpace(f.UserID) == "" {
		return &domain.ValidationError{Field: "user_id", Msg: "user id is required"}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return &domain.InvalidRangeError{Start: *f.From, End: *f.To}
	}
	if f.Kind != "" && f.Kind != domain.KindExpense && f.Kind != domain.KindIncome {
		return &domain.ValidationError{Field: "kind", Err: domain.ErrInvalidKind}
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return &domain.ValidationError{Field: "amount", Msg: "min amount is greater than max amount"}
	}
	if f.Limit < 0 || f.Limit > MaxLimit {
		return &domain.ValidationError{Field: "limit", Msg: fmt.Sprintf("limit must be between 0 and %d", MaxLimit)}
	}
	return nil
}

// Arg is one bound parameter. Value is a string, domain.Kind, civil.Date or
// decimal.Decimal; backends convert it to their driver's native type.
type Arg struct {
	Name  string
	Value any
}

// Dialect renders the placeholder for the n-th (1-based) parameter.
type Dialect interface {
	Placeholder(n int, name string) string
}

// Dollar renders $1, $2, ... (Postgres).
type Dollar struct{}

func (Dollar) Placeholder(n int, _ string) string { return "$" + strconv.Itoa(n) }

// Question renders ? (SQLite).
type Question struct{}

func (Question) Placeholder(int, string) string { return "?" }

// Named renders @name (BigQuery).
type Named struct{}

func (Named) Placeholder(_ int, name string) string { return "@" + name }

// Clause is a rendered WHERE/LIMIT tail and its parameters in order.
type Clause struct {
	Where string
	Limit string
	Args  []Arg
}

// condition pairs a fixed SQL template with one value. The template's single
// %s is replaced by the dialect's placeholder.
type condition struct {
	tmpl  string
	name  string
	value any
}

func (f Filter) conditions() []condition {
	conds := []condition{{tmpl: colUserID + " = %s", name: "user_id", value: f.UserID}}
	if f.From != nil {
		conds = append(conds, condition{colDate + " >= %s", "from_date", *f.From})
	}
	if f.To != nil {
		conds = append(conds, condition{colDate + " <= %s", "to_date", *f.To})
	}
	if f.Kind != "" {
		conds = append(conds, condition{colKind + " = %s", "kind", f.Kind})
	}
	if f.Category != "" {
		conds = append(conds, condition{colCategoryName + " = %s", "category", f.Category})
	}
	if f.PaymentMethod != "" {
		conds = append(conds, condition{"LOWER(" + colPaymentMethod + ") = LOWER(%s)", "payment_method", f.PaymentMethod})
	}
	if f.MinAmount != nil {
		conds = append(conds, condition{colAmount + " >= %s", "min_amount", *f.MinAmount})
	}
	if f.MaxAmount != nil {
		conds = append(conds, condition{colAmount + " <= %s", "max_amount", *f.MaxAmount})
	}
	return conds
}

// Build renders f for dialect d. User-supplied values only ever appear in
// Args; the SQL text is assembled from constant templates.
func Build(f Filter, d Dialect) Clause {
	conds := f.conditions()
	parts := make([]string, len(conds))
	args := make([]Arg, len(conds))
	for i, c := range conds {
		parts[i] = fmt.Sprintf(c.tmpl, d.Placeholder(i+1, c.name))
		args[i] = Arg{Name: c.name, Value: c.value}
	}
	cl := Clause{Where: "WHERE " + strings.Join(parts, " AND "), Args: args}
	if f.Limit > 0 {
		cl.Limit = "LIMIT " + strconv.Itoa(f.Limit)
	}
	return cl
}

// TextValues converts Args for drivers that take dates and decimals as
// strings.
func TextValues(args []Arg) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.Value.(type) {
		case civil.Date:
			out[i] = v.String()
		case decimal.Decimal:
			out[i] = v.String()
		case domain.Kind:
			out[i] = string(v)
		default:
			out[i] = v
		}
	}
	return out
}
