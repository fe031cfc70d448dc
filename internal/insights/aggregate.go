// Package insights turns a period's transactions into totals, breakdowns, a
// health score and human-readable observations.
package insights

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/period"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/shopspring/decimal"
)

// NotSpecified labels transactions without a payment method.
const NotSpecified = "Not specified"

var hundred = decimal.NewFromInt(100)

// CategoryTotal is one row of the expense breakdown.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
	Count      int             `json:"count"`
}

// DailyTotal is the expense sum of one calendar day.
type DailyTotal struct {
	Date   civil.Date      `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// MethodTotal is the sum over one payment method, both kinds included.
type MethodTotal struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// Result is the aggregation of one period. Slices are never nil.
type Result struct {
	Range          period.Range    `json:"range"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	Transactions   int             `json:"transaction_count"`
	Categories     []CategoryTotal `json:"categories"`
	Daily          []DailyTotal    `json:"daily"`
	PaymentMethods []MethodTotal   `json:"payment_methods"`
}

// Net is income minus expense.
func (r Result) Net() decimal.Decimal {
	return r.TotalIncome.Sub(r.TotalExpense)
}

// SavingsRate is (income - expense) / income in percent, rounded to two
// places, or 0 without income. It is for display; thresholds use
// savingsPercent.
func (r Result) SavingsRate() float64 {
	return r.savingsPercent().Round(2).InexactFloat64()
}

// savingsPercent is the unrounded savings rate in percent.
func (r Result) savingsPercent() decimal.Decimal {
	if !r.TotalIncome.IsPositive() {
		return decimal.Zero
	}
	return r.Net().Mul(hundred).Div(r.TotalIncome)
}

// share is the unrounded percentage of total expense that c represents.
func (r Result) share(c CategoryTotal) decimal.Decimal {
	if !r.TotalExpense.IsPositive() {
		return decimal.Zero
	}
	return c.Amount.Mul(hundred).Div(r.TotalExpense)
}

// TopCategory returns the largest expense category, if any.
func (r Result) TopCategory() (CategoryTotal, bool) {
	if len(r.Categories) == 0 {
		return CategoryTotal{}, false
	}
	return r.Categories[0], true
}

// Category returns the breakdown row for name, if present.
func (r Result) Category(name string) (CategoryTotal, bool) {
	for _, c := range r.Categories {
		if c.Category == name {
			return c, true
		}
	}
	return CategoryTotal{}, false
}

// Summarize aggregates rows in memory. Rows outside r are not filtered here;
// callers pass rows already scoped to the period.
func Summarize(r period.Range, rows []domain.Transaction) Result {
	res := Result{
		Range:          r,
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
		Transactions:   len(rows),
		Categories:     []CategoryTotal{},
		Daily:          []DailyTotal{},
		PaymentMethods: []MethodTotal{},
	}

	cats := map[string]*CategoryTotal{}
	days := map[civil.Date]decimal.Decimal{}
	methods := map[string]*MethodTotal{}

	for _, tx := range rows {
		method := NotSpecified
		if tx.PaymentMethod != nil && *tx.PaymentMethod != "" {
			method = *tx.PaymentMethod
		}
		m, ok := methods[method]
		if !ok {
			m = &MethodTotal{Method: method, Amount: decimal.Zero}
			methods[method] = m
		}
		m.Amount = m.Amount.Add(tx.Amount)
		m.Count++

		if tx.Kind == domain.KindIncome {
			res.TotalIncome = res.TotalIncome.Add(tx.Amount)
			continue
		}

		res.TotalExpense = res.TotalExpense.Add(tx.Amount)

		name := tx.CategoryName
		if name == "" {
			name = domain.CategoryMiscellaneous
		}
		c, ok := cats[name]
		if !ok {
			c = &CategoryTotal{Category: name, Amount: decimal.Zero}
			cats[name] = c
		}
		c.Amount = c.Amount.Add(tx.Amount)
		c.Count++

		days[tx.Date] = days[tx.Date].Add(tx.Amount)
	}

	for _, c := range cats {
		c.Percentage = res.share(*c).Round(2).InexactFloat64()
		res.Categories = append(res.Categories, *c)
	}
	sort.Slice(res.Categories, func(i, j int) bool {
		a, b := res.Categories[i], res.Categories[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Category < b.Category
	})

	for d, amt := range days {
		res.Daily = append(res.Daily, DailyTotal{Date: d, Amount: amt})
	}
	sort.Slice(res.Daily, func(i, j int) bool {
		return res.Daily[i].Date.Before(res.Daily[j].Date)
	})

	for _, m := range methods {
		res.PaymentMethods = append(res.PaymentMethods, *m)
	}
	sort.Slice(res.PaymentMethods, func(i, j int) bool {
		a, b := res.PaymentMethods[i], res.PaymentMethods[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Method < b.Method
	})

	return res
}

// Aggregate reads the user's rows in r through sess and summarizes them. The
// caller owns sess.
func Aggregate(ctx context.Context, sess store.Session, userID string, r period.Range) (Result, error) {
	from, to := r.Start, r.End
	rows, err := sess.ListTransactions(ctx, store.Filter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return Result{}, fmt.Errorf("Aggregate: list transactions for %s: %w", r, domain.Dependency("database", err))
	}
	return Summarize(r, rows), nil
}
