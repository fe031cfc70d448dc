package ingest

import (
	"regexp"
	"strings"

	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// FallbackConfidence marks extractions made without the language model.
const FallbackConfidence = 0.7

// defaultAmount is used when the text carries no recognisable amount.
var defaultAmount = decimal.NewFromInt(100)

var (
	amountPattern   = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr)\s*([\d,]+(?:\.\d{1,2})?)`)
	merchantPattern = regexp.MustCompile(`(?i)\bat\s+([A-Za-z0-9&'\-]+(?:\s+[A-Za-z0-9&'\-]+){0,2})`)
)

var incomeKeywords = []string{"salary", "income", "payment received", "earned", "bonus"}

// merchantStopWords end a merchant name.
var merchantStopWords = map[string]bool{
	"on": true, "for": true, "via": true, "using": true, "with": true,
	"yesterday": true, "today": true, "and": true, "by": true,
}

// categoryKeywords is checked in order; the first substring hit wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{domain.CategoryFoodDining, []string{"groceries", "grocery", "food", "restaurant", "swiggy", "zomato", "lunch", "dinner", "breakfast", "cafe", "coffee"}},
	{domain.CategoryTransportation, []string{"uber", "taxi", "cab", "fuel", "petrol", "diesel", "metro", "parking", "bus fare"}},
	{domain.CategoryShopping, []string{"amazon", "flipkart", "myntra", "shopping", "clothes"}},
	{domain.CategoryEntertainment, []string{"movie", "netflix", "hotstar", "spotify", "concert", "game"}},
	{domain.CategoryBillsUtilities, []string{"electricity", "recharge", "internet", "wifi", "broadband", "bill"}},
	{domain.CategoryHealthcare, []string{"doctor", "hospital", "medicine", "pharmacy", "medical"}},
	{domain.CategoryEducation, []string{"school", "college", "course", "tuition", "books"}},
	{domain.CategoryTravel, []string{"flight", "hotel", "train", "irctc", "trip"}},
	{domain.CategoryHousing, []string{"rent", "maintenance"}},
	{domain.CategoryPersonalCare, []string{"salon", "haircut", "gym"}},
	{domain.CategoryInvestments, []string{"mutual fund", "stocks", "investment"}},
	{domain.CategorySalary, []string{"salary"}},
	{domain.CategoryOtherIncome, []string{"bonus", "income", "earned", "payment received"}},
}

// ParseFallback extracts a transaction from text without any I/O. It accepts
// any input, including the empty string.
func ParseFallback(text string) domain.Extraction {
	lower := strings.ToLower(text)

	kind := domain.KindExpense
	if containsAny(lower, incomeKeywords) {
		kind = domain.KindIncome
	}

	return domain.Extraction{
		Amount:      parseAmount(text),
		Description: domain.ShortDescription(text),
		Category:    matchCategory(lower),
		Kind:        kind,
		Merchant:    parseMerchant(text),
		Confidence:  FallbackConfidence,
	}
}

func parseAmount(text string) decimal.Decimal {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return defaultAmount
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || !d.IsPositive() {
		return defaultAmount
	}
	return d
}

func matchCategory(lower string) string {
	for _, row := range categoryKeywords {
		if containsAny(lower, row.keywords) {
			return row.category
		}
	}
	return domain.CategoryMiscellaneous
}

func parseMerchant(text string) *string {
	m := merchantPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var words []string
	for _, w := range strings.Fields(m[1]) {
		if merchantStopWords[strings.ToLower(w)] {
			break
		}
		words = append(words, w)
	}
	return domain.StringPtr(strings.Join(words, " "))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
