// Package reports renders insights into PDF documents and stores them.
package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/insights"
	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/phpdave11/gofpdf"
)

// Document is everything a rendered report shows.
type Document struct {
	UserID      string
	Kind        string
	GeneratedAt time.Time
	Insights    tracker.InsightsResult
}

// maxCategoryRows bounds the category table.
const maxCategoryRows = 14

// BuildPDF renders doc as an A4 report.
func BuildPDF(doc Document) ([]byte, error) {
	rep := doc.Insights.Insights
	if rep == nil {
		return nil, fmt.Errorf("BuildPDF: document has no insights")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Expense report", false)
	pdf.SetMargins(14, 14, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string {
		return tr(strings.ReplaceAll(s, "₹", "Rs. "))
	}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Expense report")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, text(fmt.Sprintf("Period (%s): %s", doc.Kind, rep.Window.Current)))
	pdf.Ln(5)
	pdf.Cell(0, 6, text("User: "+doc.UserID))
	pdf.Ln(10)

	cur := rep.Current
	pdf.SetTextColor(20, 20, 20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := []float64{46, 46, 46, 44}
	pdf.CellFormat(sumW[0], 9, "Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 9, "Expense", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 9, "Net", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[3], 9, "Savings rate", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 9, text(domain.FormatINR(cur.TotalIncome)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 9, text(domain.FormatINR(cur.TotalExpense)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 9, text(domain.FormatINR(cur.Net())), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[3], 9, fmt.Sprintf("%.1f%%", cur.SavingsRate()), "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	if h := doc.Insights.FinancialHealth; h != nil {
		heading(pdf, "Financial health")
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, fmt.Sprintf("Score: %d / 100 (%s)", h.Score, h.Status))
		pdf.Ln(7)
		for _, a := range h.ImprovementAreas {
			pdf.Cell(0, 6, text("- "+a))
			pdf.Ln(6)
		}
		pdf.Ln(2)
	}

	if len(cur.Categories) > 0 {
		heading(pdf, "Spending by category")
		categoryTable(pdf, text, cur.Categories)
		pdf.Ln(4)
	}

	if len(cur.PaymentMethods) > 0 {
		heading(pdf, "Payment methods")
		pdf.SetFont("Helvetica", "", 10)
		for _, m := range cur.PaymentMethods {
			pdf.Cell(0, 6, text(fmt.Sprintf("%s: %s (%d)", m.Method, domain.FormatINR(m.Amount), m.Count)))
			pdf.Ln(6)
		}
		pdf.Ln(2)
	}

	switch {
	case rep.ComparisonFailed:
		paragraph(pdf, text("Comparison with the previous period is unavailable."))
	case rep.Previous != nil:
		heading(pdf, "Previous period")
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, text(fmt.Sprintf("%s: income %s, expense %s",
			rep.Window.Previous, domain.FormatINR(rep.Previous.TotalIncome), domain.FormatINR(rep.Previous.TotalExpense))))
		pdf.Ln(8)
	}

	if len(rep.Highlights) > 0 {
		heading(pdf, "Highlights")
		for _, h := range rep.Highlights {
			paragraph(pdf, text("- "+h))
		}
		pdf.Ln(2)
	}

	if len(doc.Insights.Recommendations) > 0 {
		heading(pdf, "Recommendations")
		for i, r := range doc.Insights.Recommendations {
			paragraph(pdf, text(fmt.Sprintf("%d. %s", i+1, r)))
		}
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+doc.GeneratedAt.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("BuildPDF: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
}

func paragraph(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, s, "", "L", false)
}

func categoryTable(pdf *gofpdf.Fpdf, text func(string) string, rows []insights.CategoryTotal) {
	colW := []float64{80, 50, 26, 26}
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(colW[0], 8, "Category", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[1], 8, "Amount", "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW[2], 8, "Share", "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW[3], 8, "Count", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	header()
	for i, c := range rows {
		if i >= maxCategoryRows {
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(colW[0], 8, text(c.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 8, text(domain.FormatINR(c.Amount)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[2], 8, fmt.Sprintf("%.1f%%", c.Percentage), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[3], 8, fmt.Sprintf("%d", c.Count), "1", 1, "R", false, 0, "")
	}
}
