package insights

import (
	"fmt"
	"strings"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Thresholds for the deterministic observations, in percent or rows.
const (
	upiShareLimit     = 70.0
	highActivityCount = 20
)

var (
	foodShareLimit      = decimal.NewFromInt(40)
	transportShareLimit = decimal.NewFromInt(30)
)

// Highlights returns plain-language observations about current. When
// previous is non-nil a period-over-period expense line is appended.
func Highlights(current Result, previous *Result) []string {
	out := []string{}

	net := current.Net()
	switch {
	case net.IsPositive():
		out = append(out, fmt.Sprintf("You saved %s this period, %.1f%% of your income.",
			domain.FormatINR(net), current.SavingsRate()))
	case net.IsNegative():
		out = append(out, fmt.Sprintf("You overspent by %s this period; expenses exceeded income.",
			domain.FormatINR(net.Neg())))
	}

	if c, ok := current.Category(domain.CategoryFoodDining); ok && current.share(c).GreaterThan(foodShareLimit) {
		out = append(out, fmt.Sprintf("Food & Dining takes %.1f%% of your spending. Cooking at home more often could help.", c.Percentage))
	}
	if c, ok := current.Category(domain.CategoryTransportation); ok && current.share(c).GreaterThan(transportShareLimit) {
		out = append(out, fmt.Sprintf("Transportation takes %.1f%% of your spending. Consider public transport or pooling rides.", c.Percentage))
	}

	if share := UPIShare(current); share > upiShareLimit {
		out = append(out, fmt.Sprintf("%.1f%% of your transactions were paid by UPI.", share))
	}

	if current.Transactions > highActivityCount {
		out = append(out, fmt.Sprintf("High activity: %d transactions recorded this period.", current.Transactions))
	}

	if previous != nil {
		if line := expenseChange(current, *previous); line != "" {
			out = append(out, line)
		}
	}

	return out
}

// UPIShare is the percentage of transactions whose payment method mentions
// UPI, by count.
func UPIShare(r Result) float64 {
	if r.Transactions == 0 {
		return 0
	}
	var n int
	for _, m := range r.PaymentMethods {
		if strings.Contains(strings.ToLower(m.Method), "upi") {
			n += m.Count
		}
	}
	return float64(n) / float64(r.Transactions) * 100
}

// ExpenseChange is the percent change of total expense from previous to
// current; ok is false when previous had no expense.
func ExpenseChange(current, previous Result) (pct float64, ok bool) {
	if !previous.TotalExpense.IsPositive() {
		return 0, false
	}
	return current.TotalExpense.Sub(previous.TotalExpense).
		Div(previous.TotalExpense).Mul(hundred).Round(1).InexactFloat64(), true
}

func expenseChange(current, previous Result) string {
	pct, ok := ExpenseChange(current, previous)
	if !ok {
		return ""
	}
	switch {
	case pct > 0:
		return fmt.Sprintf("Spending is up %.1f%% compared with the previous period.", pct)
	case pct < 0:
		return fmt.Sprintf("Spending is down %.1f%% compared with the previous period.", -pct)
	}
	return "Spending is unchanged from the previous period."
}
