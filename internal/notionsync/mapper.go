package notionsync

import (
	"strconv"
	"time"

	"github.com/dvloznov/expense-tracker/internal/events"
	"github.com/jomei/notionapi"
)

// Property names of the expenses database.
const (
	PropDescription   = "Description"
	PropExpenseID     = "Expense ID"
	PropUser          = "User"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropCategory      = "Category"
	PropKind          = "Kind"
	PropDate          = "Date"
	PropMerchant      = "Merchant"
	PropPaymentMethod = "Payment Method"
	PropLocation      = "Location"
	PropSource        = "Source"
	PropRecordedAt    = "Recorded At"
)

// ExpenseToNotionProperties maps an event onto database page properties.
// Optional fields are omitted when empty.
func ExpenseToNotionProperties(e *events.ExpenseRecorded) notionapi.Properties {
	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{Title: richText(titleFor(e))},
		PropExpenseID:   notionapi.RichTextProperty{RichText: richText(e.ExpenseID)},
		PropUser:        notionapi.RichTextProperty{RichText: richText(e.UserID)},
		PropAmount:      notionapi.NumberProperty{Number: parseAmount(e.Amount)},
		PropCurrency:    selectOf(e.Currency),
		PropCategory:    selectOf(e.Category),
		PropKind:        selectOf(e.Kind),
		PropSource:      selectOf(e.Provenance),
	}

	if d, err := time.Parse(time.DateOnly, e.Date); err == nil {
		props[PropDate] = dateOf(d)
	}
	if !e.RecordedAt.IsZero() {
		props[PropRecordedAt] = dateOf(e.RecordedAt)
	}
	if e.Merchant != nil && *e.Merchant != "" {
		props[PropMerchant] = notionapi.RichTextProperty{RichText: richText(*e.Merchant)}
	}
	if e.PaymentMethod != nil && *e.PaymentMethod != "" {
		props[PropPaymentMethod] = selectOf(*e.PaymentMethod)
	}
	if e.Location != nil && *e.Location != "" {
		props[PropLocation] = notionapi.RichTextProperty{RichText: richText(*e.Location)}
	}
	return props
}

func titleFor(e *events.ExpenseRecorded) string {
	if e.Description != "" {
		return e.Description
	}
	return e.Category
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func selectOf(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

func dateOf(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// expenseIDOf reads the expense id back from a queried page.
func expenseIDOf(page notionapi.Page) string {
	if prop, ok := page.Properties[PropExpenseID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
