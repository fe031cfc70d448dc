package domain

import "strings"

// Category is pre-seeded reference data. The tracker never mutates it.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
}

// Canonical category names. They double as the enumeration offered to the
// language model.
const (
	CategoryFoodDining     = "Food & Dining"
	CategoryTransportation = "Transportation"
	CategoryShopping       = "Shopping"
	CategoryEntertainment  = "Entertainment"
	CategoryBillsUtilities = "Bills & Utilities"
	CategoryHealthcare     = "Healthcare"
	CategoryEducation      = "Education"
	CategoryTravel         = "Travel"
	CategoryHousing        = "Rent & Housing"
	CategoryPersonalCare   = "Personal Care"
	CategoryInvestments    = "Investments"
	CategorySalary         = "Salary"
	CategoryOtherIncome    = "Other Income"
	CategoryMiscellaneous  = "Miscellaneous"
)

// SeedCategories is the category table shipped with every schema.
var SeedCategories = []Category{
	{ID: "food-dining", Name: CategoryFoodDining, LocalName: "खाना और भोजन"},
	{ID: "transportation", Name: CategoryTransportation, LocalName: "परिवहन"},
	{ID: "shopping", Name: CategoryShopping, LocalName: "खरीदारी"},
	{ID: "entertainment", Name: CategoryEntertainment, LocalName: "मनोरंजन"},
	{ID: "bills-utilities", Name: CategoryBillsUtilities, LocalName: "बिल और उपयोगिताएँ"},
	{ID: "healthcare", Name: CategoryHealthcare, LocalName: "स्वास्थ्य"},
	{ID: "education", Name: CategoryEducation, LocalName: "शिक्षा"},
	{ID: "travel", Name: CategoryTravel, LocalName: "यात्रा"},
	{ID: "rent-housing", Name: CategoryHousing, LocalName: "किराया और आवास"},
	{ID: "personal-care", Name: CategoryPersonalCare, LocalName: "व्यक्तिगत देखभाल"},
	{ID: "investments", Name: CategoryInvestments, LocalName: "निवेश"},
	{ID: "salary", Name: CategorySalary, LocalName: "वेतन"},
	{ID: "other-income", Name: CategoryOtherIncome, LocalName: "अन्य आय"},
	{ID: "miscellaneous", Name: CategoryMiscellaneous, LocalName: "विविध"},
}

// CategoryNames returns the canonical names in seed order.
func CategoryNames() []string {
	names := make([]string, len(SeedCategories))
	for i, c := range SeedCategories {
		names[i] = c.Name
	}
	return names
}

// CanonicalCategory maps a case-insensitive name onto its canonical spelling.
func CanonicalCategory(name string) (string, bool) {
	n := normalizeCategory(name)
	for _, c := range SeedCategories {
		if normalizeCategory(c.Name) == n {
			return c.Name, true
		}
	}
	return "", false
}

func normalizeCategory(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
