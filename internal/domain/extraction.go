package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLen bounds an extracted description, in runes.
const MaxDescriptionLen = 100

// Extraction is the structured reading of a free-text entry, produced either
// by the language model or by the deterministic fallback parser.
type Extraction struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Kind        Kind            `json:"transactionType"`
	Merchant    *string         `json:"merchantName"`
	Confidence  float64         `json:"confidence"`
}

// ShortDescription trims s and cuts it to MaxDescriptionLen runes.
func ShortDescription(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= MaxDescriptionLen {
		return s
	}
	return string(r[:MaxDescriptionLen])
}
