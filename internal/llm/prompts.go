package llm

import (
	"strings"

	"github.com/dvloznov/expense-tracker/internal/domain"
)

// ExtractionSchema describes the object the categorizer expects back.
func ExtractionSchema() *Schema {
	zero, one := 0.0, 1.0
	return &Schema{Fields: []Field{
		{Name: "amount", Type: TypeNumber, Description: "amount in rupees, positive"},
		{Name: "description", Type: TypeString, Description: "short description of the transaction"},
		{Name: "category", Type: TypeString, Enum: domain.CategoryNames()},
		{Name: "transactionType", Type: TypeString, Enum: []string{string(domain.KindExpense), string(domain.KindIncome)}},
		{Name: "merchantName", Type: TypeString, Nullable: true, Description: "merchant or payee, null if unknown"},
		{Name: "confidence", Type: TypeNumber, Min: &zero, Max: &one, Description: "how sure you are of the category"},
	}}
}

func categorizeSystemPrompt() string {
	return "You are an expense tracking assistant for users in India.\n" +
		"Extract one transaction from the user's message.\n" +
		"Amounts are in Indian Rupees; ₹, Rs and INR all mean rupees.\n" +
		"Salary, refunds received, bonuses and other money coming in are income; everything else is an expense."
}

func buildCategorizePrompt(text string) string {
	var b strings.Builder
	b.WriteString("Available categories:\n")
	for _, c := range domain.SeedCategories {
		b.WriteString("- ")
		b.WriteString(c.Name)
		if c.LocalName != "" {
			b.WriteString(" (" + c.LocalName + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nMessage:\n")
	b.WriteString(text)
	return b.String()
}
