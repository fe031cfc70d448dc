package insights

import (
	"fmt"
	"strings"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// maxSummaryCategories bounds the breakdown rows included in a summary.
const maxSummaryCategories = 5

// RenderSummary writes current, and previous when present, as compact text
// for a language-model prompt.
func RenderSummary(current Result, previous *Result) string {
	var b strings.Builder
	writeResult(&b, "Current period", current)
	if previous != nil {
		b.WriteString("\n")
		writeResult(&b, "Previous period", *previous)
		if pct, ok := ExpenseChange(current, *previous); ok {
			fmt.Fprintf(&b, "\nExpense change: %+.1f%%\n", pct)
		}
	}
	return b.String()
}

func writeResult(b *strings.Builder, title string, r Result) {
	fmt.Fprintf(b, "%s (%s):\n", title, r.Range)
	fmt.Fprintf(b, "- Total income: %s\n", domain.FormatINR(r.TotalIncome))
	fmt.Fprintf(b, "- Total expense: %s\n", domain.FormatINR(r.TotalExpense))
	fmt.Fprintf(b, "- Savings rate: %.1f%%\n", r.SavingsRate())
	fmt.Fprintf(b, "- Transactions: %d\n", r.Transactions)

	if len(r.Categories) > 0 {
		b.WriteString("- Top categories:\n")
		for i, c := range r.Categories {
			if i == maxSummaryCategories {
				break
			}
			fmt.Fprintf(b, "  - %s: %s (%.1f%%, %d transactions)\n", c.Category, domain.FormatINR(c.Amount), c.Percentage, c.Count)
		}
	}
	if len(r.PaymentMethods) > 0 {
		b.WriteString("- Payment methods:\n")
		for _, m := range r.PaymentMethods {
			fmt.Fprintf(b, "  - %s: %s (%d)\n", m.Method, domain.FormatINR(m.Amount), m.Count)
		}
	}
}
