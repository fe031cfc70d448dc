package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Categorizer turns free text into a structured extraction.
type Categorizer interface {
	Categorize(ctx context.Context, text string) (domain.Extraction, error)
}

// ModelCategorizer asks a Generator for an extraction matching
// ExtractionSchema and validates the answer.
type ModelCategorizer struct {
	gen Generator
}

// NewModelCategorizer wraps gen.
func NewModelCategorizer(gen Generator) *ModelCategorizer {
	return &ModelCategorizer{gen: gen}
}

// rawExtraction is the wire shape returned by the model.
type rawExtraction struct {
	Amount          json.Number `json:"amount"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	TransactionType string      `json:"transactionType"`
	MerchantName    *string     `json:"merchantName"`
	Confidence      float64     `json:"confidence"`
}

// Categorize returns an error on any transport or validation failure; the
// caller decides on a fallback.
func (c *ModelCategorizer) Categorize(ctx context.Context, text string) (domain.Extraction, error) {
	out, err := c.gen.Generate(ctx, Request{
		System: categorizeSystemPrompt(),
		Prompt: buildCategorizePrompt(text),
		Schema: ExtractionSchema(),
	})
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("Categorize: %w", err)
	}
	return parseExtraction(out)
}

func parseExtraction(out string) (domain.Extraction, error) {
	var raw rawExtraction
	dec := json.NewDecoder(strings.NewReader(CleanJSON(out)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return domain.Extraction{}, fmt.Errorf("parseExtraction: unmarshal JSON: %w", err)
	}

	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil || !amount.IsPositive() {
		return domain.Extraction{}, fmt.Errorf("parseExtraction: invalid amount %q", raw.Amount)
	}

	category, ok := domain.CanonicalCategory(raw.Category)
	if !ok {
		return domain.Extraction{}, fmt.Errorf("parseExtraction: category %q not in enumeration", raw.Category)
	}

	kind, err := domain.ParseKind(raw.TransactionType)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("parseExtraction: %w", err)
	}

	conf := raw.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return domain.Extraction{
		Amount:      amount.Round(2),
		Description: domain.ShortDescription(raw.Description),
		Category:    category,
		Kind:        kind,
		Merchant:    domain.StringPtr(derefString(raw.MerchantName)),
		Confidence:  conf,
	}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
